// Package domain models utility meter readings and daily temperature
// summaries, and implements the numeric core of the pipeline: windowed
// linear-regression smoothing of a daily temperature series.
//
// # Meter Readings
//
// Utility companies report usage as interval readings: each CSV row carries
// the reading date and the amount consumed since the previous reading, e.g.
//
//	2023-11-04,732
//	2023-12-05,911
//
// Reading intervals are irregular (roughly monthly, but billing cycles
// drift), so a usage series is converted to comparable per-day averages
// before plotting: the point for a reading spreads its amount evenly over
// the days since the previous reading. See [github.com/couchcryptid/utility-usage-etl/internal/ingest].
//
// # Temperature Summaries
//
// A Temp is one calendar day's minimum, mean, and maximum temperature in
// degrees Fahrenheit. Providers reporting in Celsius are converted at the
// adapter boundary. Canonical per-day values combine all configured
// providers: the lowest minimum, the highest maximum, and the unweighted
// mean of the per-provider means.
//
// # Day Numbers
//
// Dates are encoded as whole days since 1970-01-01 UTC ([DayNumber]). The
// encoding is monotonic and time-zone independent (dates are normalized to
// UTC midnight first), which makes it usable both as an orderable SQLite
// cache key and as the regression x-coordinate.
//
// # Smoothing
//
// [SmoothSeries] fits an ordinary least-squares line over a sliding
// calendar-day window and evaluates it at each point's own date. The window
// for width W spans W/2 days before the target date and (W-1)/2 days after,
// both inclusive, so even widths lean one day toward the past. Windows are
// computed on calendar days rather than slice indexes, so missing days
// simply shrink the window. A window with fewer than two distinct days
// yields NaN, which flows through to the renderer as a visible gap.
package domain
