package types

// JSONMap is a free-form JSON object persisted through GORM's json
// serializer. Product snapshots captured at order time use it so the
// order's historical view survives later listing edits.
type JSONMap map[string]any
