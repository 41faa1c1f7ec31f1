package main

import (
	"path/filepath"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"whisperwatch/internal/queue"
)

var statusCaser = cases.Title(language.English)

// renderJobsTable summarizes the final state of every job in submission order.
func renderJobsTable(jobs []queue.Job) string {
	headers := []string{"File", "Status", "Result"}
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		result := job.SubtitlePath
		if job.Status == queue.StatusFailed {
			result = job.ErrorMessage
		}
		rows = append(rows, []string{
			filepath.Base(job.SourcePath),
			statusCaser.String(string(job.Status)),
			result,
		})
	}
	return renderTable(headers, rows, []columnAlignment{alignLeft, alignLeft, alignLeft})
}
