// Package models reports the download state of the detection models used by
// the external detection service.
package models

import (
	"encoding/json"
	"fmt"
)

// Key identifies one of the known models. The set is closed.
type Key string

const (
	KeyMain        Key = "u2net_full"  // Full U2-Net region detector.
	KeyLite        Key = "u2net_lite"  // Lite U2-Net region detector.
	KeyOrientation Key = "orientation" // Orientation classifier used by auto-rotate.
)

// Keys returns every known model key
func Keys() []Key {
	return []Key{KeyMain, KeyLite, KeyOrientation}
}

// Valid reports whether k is a known model key
func (k Key) Valid() bool {
	switch k {
	case KeyMain, KeyLite, KeyOrientation:
		return true
	}
	return false
}

// ParseKey converts s into a Key
func ParseKey(s string) (Key, error) {
	k := Key(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown model key %q", s)
	}
	return k, nil
}

// DetectorKey returns the region detector model for the lite setting
func DetectorKey(lite bool) Key {
	if lite {
		return KeyLite
	}
	return KeyMain
}

// State is the discriminator of a Status
type State string

const (
	StateReady         State = "ready"
	StateDownloading   State = "downloading"
	StateError         State = "error"
	StateNotDownloaded State = "not_downloaded"
)

// Status is one of Ready, Downloading, Failed or NotDownloaded
type Status interface {
	State() State
	isStatus()
}

// Ready means the model is on disk and usable
type Ready struct{}

// Downloading carries the download progress in percent, 0 to 100
type Downloading struct {
	Progress int
}

// Failed carries the reason a download failed
type Failed struct {
	Message string
}

// NotDownloaded means the model has not been fetched yet
type NotDownloaded struct{}

func (Ready) State() State         { return StateReady }
func (Downloading) State() State   { return StateDownloading }
func (Failed) State() State        { return StateError }
func (NotDownloaded) State() State { return StateNotDownloaded }

func (Ready) isStatus()         {}
func (Downloading) isStatus()   {}
func (Failed) isStatus()        {}
func (NotDownloaded) isStatus() {}

// Info describes one model and its status
type Info struct {
	Key      Key
	Label    string
	SizeDesc string
	Status   Status
}

// Statuses maps every reported model to its Info
type Statuses map[Key]Info

// wireInfo is the JSON shape used by the model status endpoint
type wireInfo struct {
	Status   State  `json:"status"`
	Label    string `json:"label"`
	SizeDesc string `json:"size_desc"`
	Progress int    `json:"progress,omitempty"`
	Error    string `json:"error,omitempty"`
}

// MarshalJSON encodes the Info in the endpoint's wire shape
func (i Info) MarshalJSON() ([]byte, error) {
	w := wireInfo{Label: i.Label, SizeDesc: i.SizeDesc}
	switch s := i.Status.(type) {
	case Ready:
		w.Status = StateReady
	case Downloading:
		w.Status = StateDownloading
		w.Progress = s.Progress
	case Failed:
		w.Status = StateError
		w.Error = s.Message
	case NotDownloaded, nil:
		w.Status = StateNotDownloaded
	}
	return json.Marshal(w)
}

func (w wireInfo) toInfo(k Key) (Info, error) {
	info := Info{Key: k, Label: w.Label, SizeDesc: w.SizeDesc}
	switch w.Status {
	case StateReady:
		info.Status = Ready{}
	case StateDownloading:
		info.Status = Downloading{Progress: min(max(w.Progress, 0), 100)}
	case StateError:
		info.Status = Failed{Message: w.Error}
	case StateNotDownloaded, "":
		info.Status = NotDownloaded{}
	default:
		return Info{}, fmt.Errorf("model %s: unknown status %q", k, w.Status)
	}
	if info.Label == "" {
		info.Label = string(k)
	}
	return info, nil
}

// Notice returns the one-line message shown next to a model that is not
// ready, or "" when it is ready
func (i Info) Notice() string {
	switch s := i.Status.(type) {
	case Ready:
		return ""
	case Downloading:
		return fmt.Sprintf("Downloading %s (%s) %d%%", i.Label, i.SizeDesc, s.Progress)
	case Failed:
		if s.Message == "" {
			return "Model download failed"
		}
		return s.Message
	default:
		return fmt.Sprintf("%s not downloaded yet (%s)", i.Label, i.SizeDesc)
	}
}
