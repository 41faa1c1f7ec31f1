// Command whisperwatch is the command line front end for the transcription
// pipeline: it queues media files, drives the whisper.cpp engine one job at a
// time, and writes SubRip subtitles next to the configured output directory.
package main
