package workflow

import "testing"

// Redis is not connected in unit tests; the progress channel must
// degrade to a no-op rather than fail or panic.

func TestPublishProgress_NoRedis(t *testing.T) {
	PublishProgress(1, StepDownloading, 50, "halfway", map[string]interface{}{"staged": 15})

	progress, found, err := ReadProgress(1)
	if err != nil {
		t.Fatal(err)
	}
	if found || progress != nil {
		t.Error("ReadProgress should report not-found without Redis")
	}
}

func TestProgress_Terminal(t *testing.T) {
	cases := []struct {
		step    string
		percent int
		want    bool
	}{
		{StepInitializing, 0, false},
		{StepDownloading, 10, false},
		{StepProcessing, 40, false},
		{StepComparing, 60, false},
		// Saving publishes intermediate percentages; only 100 stops the poll.
		{StepSaving, 80, false},
		{StepSaving, 100, true},
		{StepCompleted, 100, true},
		// Failure and cancellation are final whatever the percent says.
		{StepFailed, 40, true},
		{StepCancelled, 60, true},
	}
	for _, c := range cases {
		p := Progress{Step: c.step, Percent: c.percent}
		if p.Terminal() != c.want {
			t.Errorf("Terminal(%s, %d%%) = %v, want %v", c.step, c.percent, !c.want, c.want)
		}
	}
}

func TestCancelFlag_NoRedis(t *testing.T) {
	if err := RequestCancel(1); err != nil {
		t.Fatalf("RequestCancel without Redis: %v", err)
	}
	if cancelRequested(1) {
		t.Error("cancel flag should read false without Redis")
	}
	clearCancelFlag(1)
}
