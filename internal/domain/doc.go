// Package domain models tide forecasts and the notifications sent about them.
//
// # Data Source
//
// Forecasts come from the Venice tide forecasting centre, which publishes the
// predicted high and low water extremes for the next few days. Each extreme is
// a level in centimetres above the Punta della Salute reference datum (ZMPS)
// together with the time it is expected. Only maxima matter for flooding, so
// a [Measurement] always describes a forecast high-water peak.
//
// # Warning Levels
//
// Levels are classified against the heights of well-known parts of the city:
//
//	green   below 80 cm
//	yellow  80 cm, the lowest point of the city starts to flood
//	orange  105 cm, the Rialto area floods (about 5% of the city)
//	red     135 cm, the railway station floods (almost 50% of the city)
//
// Bands are half-open: a boundary value belongs to the higher band. See
// [Classify].
//
// # Message Format
//
// A [Notification] is a single plain-text line built by [Render]. The text is
// reproduced byte for byte in tests, so the template must not change casually.
package domain
