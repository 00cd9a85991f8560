package private

import (
	"crypto/rand"
	"io"
	"time"

	"github.com/fission-suite/rs-wnfs/nameaccumulator"
)

// testSetup and testRootName give tests a consistent, non-zero name
// lineage to hang private nodes off, matching how a real mount derives
// its own root name from a shared forest-wide Setup.
func testSetup() nameaccumulator.Setup {
	s, err := nameaccumulator.NewSetup(rand.Reader)
	if err != nil {
		panic(err)
	}
	return s
}

func testRootName() nameaccumulator.Name {
	return nameaccumulator.Empty(testSetup())
}

func testNow() time.Time {
	return time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
}

func testRNG() io.Reader { return rand.Reader }
