package common

// Metadata keys used in the local key/value store.
const (
	// WatermarkKeyPrefix prefixes the per-collection pull watermark keys,
	// e.g. "watermark:category".
	WatermarkKeyPrefix = "watermark:"

	// DeviceIDKey stores the per-install device identifier recorded as
	// tombstone provenance (deletedBy).
	DeviceIDKey = "device_id"
)
