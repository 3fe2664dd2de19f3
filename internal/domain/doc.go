// Package domain models probabilistic rainfall verification data.
//
// # Exceedance Records
//
// For one forecasting system, accumulation window, verifying rainfall
// threshold (VRT), base date and lead time, the count stage samples every
// ensemble member at the grid point nearest each rain gauge and records:
//
//	row 0: how many members forecast >= VRT at the gauge   (0..NumMembers)
//	row 1: whether the gauge itself measured >= VRT          (0 or 1)
//
// Both comparisons are inclusive. A date whose forecast or observation file is
// missing produces no record at all.
//
// # Day Partitioning
//
// Records are kept per calendar day in [DaySamples]. Bootstrap resampling draws
// whole days with replacement because gauges observed on the same day are
// spatially correlated. [DaySamples.Resample] concatenates the drawn days into a
// flat [VerificationSample].
//
// # Lead Times
//
// A lead time (step) is the hour, relative to the base time, at which the
// accumulation window ends. With a 12 h window, step 36 covers t+24..t+36.
//
// # Thresholds
//
// Thresholds are in millimetres over the accumulation window and are spelled
// in paths by [FormatThreshold]: 0.2 stays "0.2", 10 becomes "10".
//
// # Summary Tables
//
// A [SummaryTable] holds one statistic (BSrel, AROCt, AROCz) with one row per
// configured lead time and columns:
//
//	[lead_time, original, bootstrap_1, ..., bootstrap_R]
//
// Lead times with no valid days keep their row with NaN values.
package domain
