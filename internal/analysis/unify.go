package analysis

// Unified holds the merged asset sets produced by one analysis run.
type Unified struct {
	// PerClass contains, for each device class, that class's canvas assets
	// plus the device-class-invariant collection and manual assets.
	PerClass map[DeviceClass][]Asset
	// Canonical is the project-wide deduplicated set.
	Canonical []Asset
}

// Unify merges the three sources into per-device-class sets and one canonical
// deduplicated set.
//
// Collection and manual assets are shared across device classes because the
// content pipeline does not serve responsive variants for them. The canonical
// set is deduplicated by identity over the concatenation canvas(desktop),
// canvas(tablet), canvas(mobile), collection, manual with last-write-wins, so
// collection/manual entries overwrite canvas duplicates that share a URL and
// keep their richer attribution.
func Unify(canvasByClass map[DeviceClass][]Asset, collection, manual []Asset) Unified {
	u := Unified{PerClass: make(map[DeviceClass][]Asset, len(canvasByClass))}

	for _, dc := range DeviceClasses() {
		merged := make([]Asset, 0, len(canvasByClass[dc])+len(collection)+len(manual))
		merged = append(merged, canvasByClass[dc]...)
		merged = append(merged, collection...)
		merged = append(merged, manual...)
		u.PerClass[dc] = dedupe(merged)
	}

	all := make([]Asset, 0)
	for _, dc := range DeviceClasses() {
		all = append(all, canvasByClass[dc]...)
	}
	all = append(all, collection...)
	all = append(all, manual...)
	u.Canonical = dedupe(all)

	return u
}

// dedupe collapses assets sharing an identity, keeping the first insertion
// position and the last-written value.
func dedupe(assets []Asset) []Asset {
	out := make([]Asset, 0, len(assets))
	index := make(map[string]int, len(assets))
	for _, a := range assets {
		if i, ok := index[a.Identity]; ok {
			out[i] = a
			continue
		}
		index[a.Identity] = len(out)
		out = append(out, a)
	}
	return out
}
