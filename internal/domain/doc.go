// Package domain models normalized hazard markers and the geometry helpers
// shared by the ingestion and scoring layers.
//
// # Data Sources
//
// Markers are produced by three independent public feeds, each with its own
// native magnitude scale:
//
//	USGS earthquake feed (GeoJSON):
//	  Moment magnitude (Mw). Mapped to severity by a piecewise-linear curve
//	  with breakpoints at 2.5 / 5.0 / 7.0 — finer resolution mid-scale where
//	  most felt quakes land, compressed at the extremes.
//
//	NASA FIRMS fire hotspots (CSV):
//	  Fire radiative power (FRP, megawatts) per satellite detection. Raw
//	  detections arrive thousands per region, so they are grid-clustered to
//	  ~0.1° cells before becoming markers. Detection confidence is reported
//	  as l/n/h (low/nominal/high) and scales severity by 0.7 / 1.0 / 1.1.
//
//	NASA EONET event tracker (JSON):
//	  Multi-category events (wildfires, storms, floods, ...) each carrying a
//	  series of dated geometry samples; only the most recent sample is used.
//	  Magnitude units vary per category (acres, kts, Mw), so the severity
//	  mapping is category-specific.
//
// # Severity
//
// Severity is a provider-independent 0–100 scale. Every mapping clamps its
// output, so the [0,100] invariant holds for any finite, negative, or absent
// native magnitude.
//
// # ID Generation
//
// Marker ids are "<source>-<native id>" when the provider supplies a stable
// native id, otherwise a deterministic SHA-256 hash of the identifying fields.
// Stable ids make re-ingestion an overwrite (last-write-wins in storage)
// rather than a duplicate.
package domain
