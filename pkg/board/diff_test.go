package board_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/leadboard/leadboard-cli/pkg/board"
	"github.com/leadboard/leadboard-cli/pkg/board/boardtest"
	"github.com/leadboard/leadboard-cli/pkg/models"
)

func TestDiff(t *testing.T) {
	prev := boardtest.SamplePipeline()
	next := prev.Clone()
	next.Relocate(2, models.StageQualified)
	next.Remove(models.StageClosed, 6)
	next.Append(models.StageLead, boardtest.NewCard(9).WithTitle("Initrode").Build())

	got := board.Diff(prev, next)
	want := []board.Change{
		{CardID: 2, Title: "Globex", From: models.StageLead, To: models.StageQualified},
		{CardID: 6, Title: "Stark Industries", From: models.StageClosed},
		{CardID: 9, Title: "Initrode", To: models.StageLead},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Diff() mismatch (-want +got):\n%s", diff)
	}

	wantText := []string{
		"Globex: Lead → Qualified",
		"- Stark Industries (was Closed)",
		"+ Initrode (Lead)",
	}
	for i, c := range got {
		if c.String() != wantText[i] {
			t.Errorf("change %d = %q, want %q", i, c.String(), wantText[i])
		}
	}
}

func TestDiff_NoChanges(t *testing.T) {
	p := boardtest.SamplePipeline()
	if got := board.Diff(p, p.Clone()); len(got) != 0 {
		t.Errorf("expected no changes, got %v", got)
	}
	if got := board.Diff(models.NewPipeline(), models.NewPipeline()); len(got) != 0 {
		t.Errorf("expected no changes for empty boards, got %v", got)
	}
}
