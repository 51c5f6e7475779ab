package models

import "math"

// DownloadProgress is a push-only progress sample for one task.
//
// Cur and Total share a unit; Total may be zero when the engine does not know it yet.
// Speed is a display string and is never interpreted.
type DownloadProgress struct {
	ID    int64   `json:"id"`
	Cur   float64 `json:"cur"`
	Total float64 `json:"total"`
	Speed string  `json:"speed"`
}

// Percent returns round(cur/total*100) and true, or 0 and false when the ratio is undefined.
func (p DownloadProgress) Percent() (int, bool) {
	if p.Total == 0 {
		return 0, false
	}
	ratio := p.Cur / p.Total
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return 0, false
	}
	return int(math.Round(ratio * 100)), true
}
