// Package dataprocessing loads penguin specimen records and computes the
// report statistics.
//
// # Architecture
//
// The package has two parts:
//
// 1. Loader: reads a CSV file or an XLSX sheet into a domain.Collection
// 2. Analytics: flipper length means by island and sex, and the share of one
// species/sex subgroup whose body mass is strictly above the subgroup mean
//
// # Usage
//
//	coll, stats, err := dataprocessing.LoadFile(ctx, "penguins.csv", dataprocessing.LoadOptions{
//	    DuplicatePolicy: dataprocessing.DuplicateReject,
//	})
//	if err != nil {
//	    return err
//	}
//
//	averages := dataprocessing.CalculateFlipperAverages(coll)
//	threshold := dataprocessing.CalculateAboveMeanPercentage(coll, dataprocessing.GroupFilter{
//	    Species: "Chinstrap",
//	    Sex:     "female",
//	})
//
// # Input Layout
//
// Columns are read by position: id, species, island, bill_length_mm,
// bill_depth_mm, flipper_length_mm, body_mass_g, sex, year. The first row is a
// header and its text is ignored. "NA" marks a missing value.
//
// # Error Handling
//
// Load failures are AppErrors from internal/errors:
//
//   - A missing file is NOT_FOUND
//   - A row with the wrong column count (ColumnCountError) or an unparseable
//     number (FieldError) is PARSING, with the line number
//   - A repeated identifier under DuplicateReject is VALIDATION (DuplicateIDError)
//
// The analytics never fail. Records missing a field they need are counted as
// skipped, and an empty subgroup yields a zero percentage.
package dataprocessing
