package decision

// Summary aggregates a batch of results.
type Summary struct {
	Total        int     `json:"total"`
	Correct      int     `json:"correct"`
	Holds        int     `json:"holds"`
	Closes       int     `json:"closes"`
	CloseCorrect int     `json:"closeCorrect"`
	Accuracy     float64 `json:"accuracy"`
	CloseRate    float64 `json:"closeAccuracy"`
	// CloseTime1Sum and CloseTime2Sum compare exiting early against riding to the end.
	CloseTime1Sum float64 `json:"closeTime1Sum"`
	CloseTime2Sum float64 `json:"closeTime2Sum"`
}

// Summarize counts decisions and their hit rates.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		s.Total++
		if r.IsCorrect {
			s.Correct++
		}
		switch r.Decision {
		case Close:
			s.Closes++
			s.CloseTime1Sum += r.Time1Value
			s.CloseTime2Sum += r.Time2Value
			if r.IsCorrect {
				s.CloseCorrect++
			}
		case Hold:
			s.Holds++
		}
	}
	if s.Total > 0 {
		s.Accuracy = float64(s.Correct) / float64(s.Total)
	}
	if s.Closes > 0 {
		s.CloseRate = float64(s.CloseCorrect) / float64(s.Closes)
	}
	return s
}
