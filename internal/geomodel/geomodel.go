// Package geomodel holds constants shared across the query engine that
// would otherwise force an import cycle between internal/model and
// internal/query.
package geomodel

// NODATA_VALUE is returned for any query whose point falls outside every
// model's domain, or outside the footprint of a model's topography. It is
// returned bit-identical on every code path that reports "no data here."
const NODATA_VALUE = -1.0e+20
