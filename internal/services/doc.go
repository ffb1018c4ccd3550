// Package services holds cross-cutting helpers shared by worker components:
// the error taxonomy used to separate configuration failures from per-job
// failures, and context annotation helpers that let logging automatically tag
// lines with job, media record, stage, and correlation identifiers.
//
// Sentinel errors are matched with errors.Is; wrap component failures with
// Wrap so operators can classify them without parsing message text.
package services
