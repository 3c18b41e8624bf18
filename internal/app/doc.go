// Package app runs the penguin analysis pipeline.
//
// # Pipeline
//
// A run is strictly sequential:
//
//  1. Load specimen records from the configured CSV or XLSX file
//  2. Average flipper length by island and sex
//  3. Compute the share of the configured subgroup above its mean body mass
//  4. Render the text report
//  5. Optionally export the flipper groups as CSV and write a metrics textfile
//
// A load failure ends the run before any analysis and no output is written.
// Every stage is a span under a "pipeline" root span and every log line
// carries the run ID as trace_id.
//
// # Usage
//
//	application, err := app.NewApplication(cfg, logger, tracing)
//	if err != nil {
//	    return err
//	}
//	result, err := application.Run(ctx)
package app
