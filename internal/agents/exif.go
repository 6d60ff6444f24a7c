package agents

import (
	"bytes"

	"github.com/rwcarlsen/goexif/exif"
)

// extractEXIF pulls device and capture metadata from image bytes: camera
// make and model, capture timestamps and embedded GPS coordinates. Images
// without EXIF data yield nil.
func extractEXIF(data []byte) map[string]any {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}

	out := make(map[string]any)
	fields := map[exif.FieldName]string{
		exif.Make:             "make",
		exif.Model:            "model",
		exif.DateTime:         "date_time",
		exif.DateTimeOriginal: "date_time_original",
	}
	for field, key := range fields {
		tag, err := x.Get(field)
		if err != nil {
			continue
		}
		if v, err := tag.StringVal(); err == nil && v != "" {
			out[key] = v
		}
	}
	if lat, lng, err := x.LatLong(); err == nil {
		out["gps"] = map[string]any{"lat": lat, "lng": lng}
	}

	if len(out) == 0 {
		return nil
	}
	return out
}
