package store

import (
	"time"

	"github.com/abhisek/heartrisk/internal/features"
	"github.com/abhisek/heartrisk/internal/predict"
)

// PredictionFromResult builds the event for one prediction attempt. A
// non-nil err marks the attempt as failed and records its message.
func PredictionFromResult(sessionID, modelPath string, rec features.Record, res predict.Result, err error, at time.Time) PredictionEventData {
	data := PredictionEventData{
		SessionID: sessionID,
		Timestamp: at,
		ModelPath: modelPath,
		Features:  rec,
		Success:   err == nil,
	}
	if err != nil {
		data.ErrorMessage = err.Error()
		return data
	}
	data.ProbNoEvent = res.ProbNoEvent
	data.ProbEvent = res.ProbEvent
	data.HighRisk = res.HighRisk
	return data
}
