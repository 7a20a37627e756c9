package depm

import "time"

// Asset is an embedded binary resource of a unit, keyed by the symbol name it
// is bound to.
type Asset struct {
	// Symbol is the name of the class or member the asset is bound to.
	Symbol string

	// File is the embedded file.
	File VirtualFile

	// Args is the transcoder argument map the asset was produced with.
	Args map[string]string

	// Data is the transcoded payload.
	Data []byte

	// modified is the file's modification time when it was transcoded.
	modified time.Time
}

// NewAsset creates a new asset for file, capturing its modification time.
func NewAsset(symbol string, file VirtualFile, args map[string]string, data []byte) *Asset {
	return &Asset{
		Symbol:   symbol,
		File:     file,
		Args:     args,
		Data:     data,
		modified: file.LastModified(),
	}
}

// positionKeys are the transcoder arguments which only record where the embed
// directive appeared.  They never affect asset identity.
var positionKeys = map[string]struct{}{
	"line":   {},
	"column": {},
}

// IsUpdated returns whether the asset must be transcoded again: either its
// file changed or the candidate argument map differs from the recorded one in
// any key other than a position marker.
func (a *Asset) IsUpdated(candidate map[string]string) bool {
	if !a.File.Exists() || !a.File.LastModified().Equal(a.modified) {
		return true
	}

	if candidate == nil {
		return false
	}

	return !sameAssetArgs(a.Args, candidate)
}

func sameAssetArgs(recorded, candidate map[string]string) bool {
	for k, v := range recorded {
		if _, ok := positionKeys[k]; ok {
			continue
		}

		if cv, ok := candidate[k]; !ok || cv != v {
			return false
		}
	}

	for k := range candidate {
		if _, ok := positionKeys[k]; ok {
			continue
		}

		if _, ok := recorded[k]; !ok {
			return false
		}
	}

	return true
}
