// Package app glues the pipeline together for the CLI: resolving the
// user's paths (files, directories, playlists) into a tagging file list,
// running the Auto-Tagger Scheduler and, when enabled, the Audio Features
// Sub-pipeline, and reporting progress and a run summary to the caller.
package app
