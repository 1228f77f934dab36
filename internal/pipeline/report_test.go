package pipeline

import (
	"strings"
	"sync"
	"testing"
)

func TestReportCounts(t *testing.T) {
	r := NewReport()
	r.Start()
	r.RecordSuccess("A", "Banff")
	r.RecordSuccess("B", "Banff")
	r.RecordPartial("C", "Banff", "missing policy page")
	r.RecordFailure("D", "Zermatt", "no policy data scraped")
	r.Finish()

	out := r.Generate()
	for _, want := range []string{
		"Total Hotels Processed: 4",
		"Successful:            2",
		"Partial (incomplete):  1",
		"Failed:                1",
		"Success Rate: 50.0%",
		"D (Zermatt): no policy data scraped",
		"C (Banff): missing policy page",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestReportConcurrentRecording(t *testing.T) {
	r := NewReport()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.RecordSuccess("H", "T")
		}()
	}
	wg.Wait()

	if !strings.Contains(r.Generate(), "Total Hotels Processed: 50") {
		t.Error("lost updates under concurrency")
	}
}

func TestReportRunIDsUnique(t *testing.T) {
	if NewReport().RunID == NewReport().RunID {
		t.Error("run IDs should be unique")
	}
}
