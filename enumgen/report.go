package enumgen

import (
	"crypto/sha256"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var reportEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("enumgen: failed to create CBOR enc mode: %v", err))
	}
	reportEncMode = em
}

// Report summarizes one synthesis run.
type Report struct {
	Class     string         `cbor:"1,keyasint"`
	Elements  int            `cbor:"2,keyasint"`
	ChunkSize int            `cbor:"3,keyasint"`
	Inline    bool           `cbor:"4,keyasint"`
	Modules   []ModuleDigest `cbor:"5,keyasint"`
}

// ModuleDigest identifies one emitted module by content.
type ModuleDigest struct {
	Path string   `cbor:"1,keyasint"`
	Size int      `cbor:"2,keyasint"`
	Hash [32]byte `cbor:"3,keyasint"`
	Aux  bool     `cbor:"4,keyasint,omitempty"`
}

// NewReport builds the report for a generation result.
func NewReport(r *Result) *Report {
	rep := &Report{
		Class:     r.Spec.InternalName(),
		Elements:  r.Spec.Len(),
		ChunkSize: r.Plan.ChunkSize,
		Inline:    r.Plan.Inline(),
	}
	for _, m := range r.Modules {
		rep.Modules = append(rep.Modules, ModuleDigest{
			Path: m.Path,
			Size: len(m.Bytes),
			Hash: sha256.Sum256(m.Bytes),
			Aux:  m.Aux,
		})
	}
	return rep
}

// MarshalReport serializes a report as canonical CBOR, so identical runs
// produce identical reports.
func MarshalReport(r *Report) ([]byte, error) {
	return reportEncMode.Marshal(r)
}

// UnmarshalReport decodes a report.
func UnmarshalReport(data []byte) (*Report, error) {
	var r Report
	if err := cbor.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("enumgen: unmarshal report: %w", err)
	}
	return &r, nil
}
