package model

import "testing"

func TestScoreToGradeBoundaries(t *testing.T) {
	// P3: exact boundary values from spec scenario table.
	cases := []struct {
		score float64
		want  Grade
	}{
		{100, GradeA}, {90, GradeA},
		{89, GradeB}, {80, GradeB},
		{79, GradeC}, {70, GradeC},
		{69, GradeD}, {60, GradeD},
		{59, GradeF}, {0, GradeF},
	}
	for _, c := range cases {
		if got := ScoreToGrade(c.score); got != c.want {
			t.Errorf("ScoreToGrade(%v) = %v, want %v", c.score, got, c.want)
		}
	}
}

func TestScoreToGradeCoverageAndDisjointness(t *testing.T) {
	// P3: every score in [0, 100] maps to exactly one grade.
	for s := 0.0; s <= 100; s += 0.5 {
		g := ScoreToGrade(s)
		switch g {
		case GradeA, GradeB, GradeC, GradeD, GradeF:
		default:
			t.Fatalf("ScoreToGrade(%v) returned unknown grade %v", s, g)
		}
	}
}

func TestScoreToGradeMonotonicity(t *testing.T) {
	// P4: non-decreasing score never produces a lower-ranked grade.
	scores := []float64{0, 10, 25, 40, 55, 59, 60, 65, 69, 70, 75, 79, 80, 85, 89, 90, 95, 100}
	for i := 1; i < len(scores); i++ {
		prev := ScoreToGrade(scores[i-1])
		cur := ScoreToGrade(scores[i])
		if cur.Rank() < prev.Rank() {
			t.Errorf("monotonicity violated: score %v -> %v (rank %d), score %v -> %v (rank %d)",
				scores[i-1], prev, prev.Rank(), scores[i], cur, cur.Rank())
		}
	}
}

func TestOverallWeightConservation(t *testing.T) {
	// P5: weights must sum to 1.0.
	sum := StructureWeight + QualityWeight + ArchitectureWeight
	if sum != 1.0 {
		t.Errorf("weights sum to %v, want 1.0", sum)
	}
}

func TestOverallPerfectAndZero(t *testing.T) {
	// P6
	if got := Overall(100, 100, 100); got != 100 {
		t.Errorf("Overall(100,100,100) = %v, want 100", got)
	}
	if got := Overall(0, 0, 0); got != 0 {
		t.Errorf("Overall(0,0,0) = %v, want 0", got)
	}
}

func TestAbstractionBand(t *testing.T) {
	cases := []struct {
		ratio float64
		want  float64
	}{
		{0.3, 100}, {0.5, 100}, {0.7, 100},
		{0, 0}, {1, 0},
	}
	for _, c := range cases {
		if got := AbstractionBand(c.ratio); got != c.want {
			t.Errorf("AbstractionBand(%v) = %v, want %v", c.ratio, got, c.want)
		}
	}
	// decays linearly outward, never negative, never above 100
	for r := -0.5; r <= 1.5; r += 0.1 {
		v := AbstractionBand(r)
		if v < 0 || v > 100 {
			t.Errorf("AbstractionBand(%v) = %v out of [0,100]", r, v)
		}
	}
}
