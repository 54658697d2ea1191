package transcription

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/nijaru/vidscribe/config"
	"github.com/nijaru/vidscribe/errors"
	"github.com/nijaru/vidscribe/logger"
	pkgerrors "github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// OpenAIModel sends audio to an OpenAI-compatible transcription endpoint,
// such as a self-hosted faster-whisper server.
type OpenAIModel struct {
	client   *openai.Client
	model    string
	language string
}

func NewOpenAIModel(cfg config.WhisperConfig) (*OpenAIModel, error) {
	if cfg.Model == "" {
		return nil, pkgerrors.New("whisper model is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.APIURL != "" {
		clientCfg.BaseURL = cfg.APIURL
	}

	return &OpenAIModel{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		language: cfg.Language,
	}, nil
}

func (m *OpenAIModel) Model() string {
	return m.model
}

func (m *OpenAIModel) Transcribe(ctx context.Context, audioPath string) (string, error) {
	const op = "OpenAIModel.Transcribe"
	log := logger.FromContext(ctx).WithField("model", m.model)
	start := time.Now()

	resp, err := m.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    m.model,
		FilePath: audioPath,
		Language: m.language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", contextError(op, ctx)
		}
		fields := logrus.Fields{"error": err}
		var apiErr *openai.APIError
		if stderrors.As(err, &apiErr) {
			fields["status"] = apiErr.HTTPStatusCode
		}
		log.WithFields(fields).Error("Transcription request failed")
		return "", errors.Transcription(op, err, "Transcription failed")
	}

	text := normalizeText(resp.Text)
	log.WithFields(logrus.Fields{
		"chars":    len(text),
		"duration": time.Since(start),
	}).Info("Audio transcribed")

	return text, nil
}
