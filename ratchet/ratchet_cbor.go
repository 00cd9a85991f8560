package ratchet

import cbor "github.com/fxamacker/cbor/v2"

// wireRatchet is the CBOR-serializable projection of a Ratchet's full
// internal state, stored inside the encrypted PrivateNodeHeader block
// (spec §6 "ratchet: <ratchet-cbor>").
type wireRatchet struct {
	Large       []byte `cbor:"large"`
	Medium      []byte `cbor:"medium"`
	MediumCount uint8  `cbor:"mediumCount"`
	Small       []byte `cbor:"small"`
	SmallCount  uint8  `cbor:"smallCount"`
}

// MarshalCBOR implements cbor.Marshaler.
func (r *Ratchet) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(wireRatchet{
		Large:       r.large[:],
		Medium:      r.medium[:],
		MediumCount: r.mediumCount,
		Small:       r.small[:],
		SmallCount:  r.smallCount,
	})
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (r *Ratchet) UnmarshalCBOR(data []byte) error {
	var w wireRatchet
	if err := cbor.Unmarshal(data, &w); err != nil {
		return err
	}
	copy(r.large[:], w.Large)
	copy(r.medium[:], w.Medium)
	r.mediumCount = w.MediumCount
	copy(r.small[:], w.Small)
	r.smallCount = w.SmallCount
	return nil
}
