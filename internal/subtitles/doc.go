// Package subtitles renders timed transcript segments as SubRip (.srt)
// files. Writes are atomic, and an existing file at the target path is never
// overwritten: the writer appends a timestamp suffix to the name instead.
package subtitles
