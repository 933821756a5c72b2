package naming

import (
	"sync"
	"testing"
)

func TestDuplicateIndex(t *testing.T) {
	d := NewDuplicateIndex([]string{
		"MC_s1_tr1_0001_vid_15_0_00-00-00.00.jpg",
		"manifest_abc.csv",
		"nested/",
	})
	if d.Len() != 1 {
		t.Fatalf("Len = %d, want 1 (non-frame entries ignored)", d.Len())
	}
	if d.Claim("MC_s1_tr1_0001_vid_15_0_00-00-00.00.jpg") {
		t.Error("existing name should not be claimable")
	}
	if !d.Claim("MC_s1_tr1_0001_vid_15_27000_00-15-00.00.jpg") {
		t.Error("new name should be claimable")
	}
	if !d.Contains("MC_s1_tr1_0001_vid_15_27000_00-15-00.00.jpg") {
		t.Error("claimed name should be recorded")
	}
}

func TestDuplicateIndex_ConcurrentClaim(t *testing.T) {
	d := NewDuplicateIndex(nil)
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if d.Claim("x.jpg") {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Errorf("wins = %d, want exactly one", wins)
	}
}
