// Package exporter writes analysis results to files.
//
// RenderReport produces the plain-text report: a title, the mean flipper
// length of every island and sex, and the above-mean body mass percentage of
// the analysed subgroup. WriteReport wraps it for a file path.
//
// WriteGroupAveragesCSV exports the same flipper groups with their counts and
// ranges as CSV with a UTF-8 BOM for Excel compatibility.
//
// Example usage:
//
//	averages := dataprocessing.CalculateFlipperAverages(collection)
//	threshold := dataprocessing.CalculateAboveMeanPercentage(collection, filter)
//
//	if err := exporter.WriteReport("penguin_calculations.txt", averages, threshold); err != nil {
//		return err
//	}
package exporter
