package sentiment

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/knights-analytics/hugot"
	"github.com/siherrmann/diffuser/helper"
	"github.com/siherrmann/diffuser/model"
)

// NeutralThreshold is the minimum classifier score for a positive or negative result
const NeutralThreshold = 0.6

var cleanPattern = regexp.MustCompile(`(@[A-Za-z0-9]+)|([^0-9A-Za-z \t])|(\w+://\S+)`)

// Clean removes handles, links and special characters and collapses whitespace
func Clean(text string) string {
	return strings.Join(strings.Fields(cleanPattern.ReplaceAllString(text, " ")), " ")
}

// DefaultSentiment creates a sentiment function using a text classification model
// fine-tuned on SST-2. Results below NeutralThreshold are neutral.
func DefaultSentiment() (model.SentimentFunc, error) {
	// Prepare model (download if needed)
	modelName := "KnightsAnalytics/distilbert-base-uncased-finetuned-sst-2-english"
	modelPath, err := helper.PrepareModel(modelName, "model.onnx")
	if err != nil {
		return nil, err
	}

	// Initialize hugot session with Go backend
	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.TextClassificationConfig{
		ModelPath: modelPath,
		Name:      "sentiment-pipeline",
	}
	sentimentPipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create sentiment pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create sentiment pipeline: %w", err)
	}

	return func(text string) (model.Sentiment, error) {
		cleaned := Clean(text)
		if cleaned == "" {
			return model.SentimentNeutral, nil
		}

		result, err := sentimentPipeline.RunPipeline([]string{cleaned})
		if err != nil {
			return model.SentimentNeutral, fmt.Errorf("failed to classify text: %w", err)
		}
		if len(result.ClassificationOutputs) == 0 || len(result.ClassificationOutputs[0]) == 0 {
			return model.SentimentNeutral, fmt.Errorf("no classification generated")
		}

		best := result.ClassificationOutputs[0][0]
		for _, output := range result.ClassificationOutputs[0][1:] {
			if output.Score > best.Score {
				best = output
			}
		}

		return FromLabel(best.Label, float64(best.Score)), nil
	}, nil
}

// FromLabel maps a classifier label and its score to a sentiment
func FromLabel(label string, score float64) model.Sentiment {
	if score < NeutralThreshold {
		return model.SentimentNeutral
	}
	switch strings.ToLower(label) {
	case "positive", "pos", "label_1":
		return model.SentimentPositive
	case "negative", "neg", "label_0":
		return model.SentimentNegative
	default:
		return model.SentimentNeutral
	}
}
