package scoring

// StudentTotals are the derived metrics for one student in one course.
type StudentTotals struct {
	StudentID uint `json:"student_id"`
	// Score is RawScore clamped at zero for display.
	Score        int `json:"score"`
	RawScore     int `json:"raw_score"`
	PointsEarned int `json:"points_earned"`
	PenaltyTotal int `json:"penalty_total"`
	// TotalRounds counts graded, valid rounds in the course whether or not the
	// student answered them.
	TotalRounds       int     `json:"total_rounds"`
	AttemptedRounds   int     `json:"attempted_rounds"`
	CorrectRounds     int     `json:"correct_rounds"`
	MissedRounds      int     `json:"missed_rounds"`
	Accuracy          float64 `json:"accuracy"`
	ParticipationRate float64 `json:"participation_rate"`
	AverageElapsed    float64 `json:"average_elapsed"`
	LastAnswer        string  `json:"last_answer"`
	LastElapsed       float64 `json:"last_elapsed"`
	LastRound         int     `json:"last_round"`
}

// ComputeStudentTotals scans a student's submissions against the course rounds.
// Unanswered graded rounds count against accuracy.
func ComputeStudentTotals(studentID uint, rounds []RoundRecord, stats []RoundStats, submissions []SubmissionRecord) StudentTotals {
	totals := StudentTotals{StudentID: studentID}

	roundByID := make(map[uint]RoundRecord, len(rounds))
	for _, round := range rounds {
		roundByID[round.ID] = round
	}

	countsByNumber := make(map[int]bool, len(stats))
	for _, stat := range stats {
		if stat.Counts() {
			countsByNumber[stat.Number] = true
			totals.TotalRounds++
		}
	}

	attempted := map[int]bool{}
	correct := map[int]bool{}
	answeredGraded := map[int]bool{}

	var elapsed float64
	var answeredCount int
	for _, submission := range submissions {
		if submission.StudentID != studentID {
			continue
		}
		round, ok := roundByID[submission.RoundID]
		if !ok {
			continue
		}

		totals.PenaltyTotal += submission.Penalty

		if !submission.Answered {
			continue
		}

		attempted[round.Number] = true
		answeredCount++
		elapsed += submission.ElapsedSeconds
		if countsByNumber[round.Number] {
			answeredGraded[round.Number] = true
		}

		if round.Number >= totals.LastRound {
			totals.LastRound = round.Number
			totals.LastAnswer = submission.Answer
			totals.LastElapsed = submission.ElapsedSeconds
		}

		if submission.counted(round) && countsByNumber[round.Number] && !correct[round.Number] {
			correct[round.Number] = true
			points := round.PointValue
			if points <= 0 {
				points = 1
			}
			totals.PointsEarned += points
		}
	}

	totals.AttemptedRounds = len(attempted)
	totals.CorrectRounds = len(correct)
	totals.MissedRounds = totals.TotalRounds - len(answeredGraded)
	totals.RawScore = totals.PointsEarned - totals.PenaltyTotal
	totals.Score = ClampScore(totals.RawScore)

	if totals.TotalRounds > 0 {
		totals.Accuracy = percent(totals.CorrectRounds, totals.TotalRounds)
		totals.ParticipationRate = percent(len(answeredGraded), totals.TotalRounds)
	}
	if answeredCount > 0 {
		totals.AverageElapsed = elapsed / float64(answeredCount)
	}

	return totals
}

// ClampScore hides negative totals from display without altering the stored value.
func ClampScore(raw int) int {
	if raw < 0 {
		return 0
	}
	return raw
}
