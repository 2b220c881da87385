// Package cdm merges clinical dialysis machine exports into analysis tables.
//
// The merger reads compressed .LOX archives laid out as
// <root>/<machine>/<year>/*.LOX, decodes their members, rebuilds the user
// event log and the fluid and pressure logs as tables, detects treatment
// sessions per machine and assigns every metadata row to the session it
// falls into. Session numbers are unique across the whole run.
//
// # Basic Usage
//
//	merger, err := cdm.NewBuilder().
//	    SetInputRoot("/data/baxter").
//	    SetOutputDir("/data/out").
//	    Build(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	report, err := merger.Run(ctx)
//
// # Outputs
//
// Every (machine, year) group writes merged_table_valid_<machine>_<year> and
// merged_metadata_<machine>_<year> into <output>/merge. The cumulative
// merged_table_valid_all and merged_metadata_all tables, sorted by machine
// then time, are written into <output>. Rows outside every session are not
// written.
//
// # Failures
//
// A file that cannot be read, a member that cannot be decoded and a table
// whose times cannot be parsed are logged and skipped; the rest of the group
// continues. Only a failure to create an output location ends the run.
package cdm
