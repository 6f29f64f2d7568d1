// Package parse turns raw claim bundle text into structured fields. The
// primary path asks an LLM for a strict JSON extraction; a deterministic
// keyword parser covers runs without an API key and serves as the fallback
// when the model call fails. The decision engine downstream treats every
// field as optional either way.
package parse

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/bvsbharat/claimspilot/internal/model"
)

// Parser extracts structured claim fields from raw text.
type Parser interface {
	Parse(ctx context.Context, rawText string) (*model.ExtractedData, error)
}

// New builds a parser from config. Provider "openai" requires an API key;
// an empty provider yields the keyword parser.
func New(cfg model.ParseConfig) (Parser, error) {
	switch cfg.Provider {
	case "":
		return NewKeywordParser(), nil
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai parser requires an API key")
		}
		return NewOpenAIParser(cfg), nil
	}
	return nil, fmt.Errorf("unknown parse provider %q", cfg.Provider)
}

const extractionPrompt = `Extract insurance claim fields from the document below.
Respond with a single JSON object and nothing else, using this shape:
{
  "claim_number": string,
  "policy_number": string,
  "claim_amount": number,
  "incident_type": "auto"|"property"|"injury"|"commercial"|"liability",
  "incident_date": "YYYY-MM-DD",
  "report_date": "YYYY-MM-DD",
  "parties": [{"name": string, "role": "claimant"|"insured"|"third_party"|"witness", "insurer": string}],
  "injuries": [{"person": string, "severity": "minor"|"moderate"|"serious"|"critical"|"fatal", "description": string}],
  "description": string,
  "fault_determination": "clear"|"disputed"|"multi-party",
  "attorney_involved": boolean
}
Omit any field the document does not state. Never invent values.

Document:
`

// OpenAIParser extracts fields with a chat completion constrained to JSON.
type OpenAIParser struct {
	client   *openai.Client
	model    string
	timeout  time.Duration
	fallback *KeywordParser
}

// NewOpenAIParser creates an LLM-backed parser.
func NewOpenAIParser(cfg model.ParseConfig) *OpenAIParser {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	mdl := cfg.Model
	if mdl == "" {
		mdl = openai.GPT4oMini
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &OpenAIParser{
		client:   openai.NewClientWithConfig(clientConfig),
		model:    mdl,
		timeout:  timeout,
		fallback: NewKeywordParser(),
	}
}

// Parse asks the model for a JSON extraction. Any API or decode failure
// falls back to the keyword parser rather than losing the claim.
func (p *OpenAIParser) Parse(ctx context.Context, rawText string) (*model.ExtractedData, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You extract structured fields from insurance claim documents. You respond with JSON only.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: extractionPrompt + rawText,
			},
		},
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return p.fallback.Parse(context.Background(), rawText)
	}
	if len(resp.Choices) == 0 {
		return p.fallback.Parse(context.Background(), rawText)
	}

	data, err := decodeExtraction(resp.Choices[0].Message.Content)
	if err != nil {
		return p.fallback.Parse(context.Background(), rawText)
	}
	return data, nil
}

// decodeExtraction parses the model's JSON answer. Dates arrive as
// YYYY-MM-DD strings and are normalized to UTC midnight.
func decodeExtraction(content string) (*model.ExtractedData, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var raw struct {
		ClaimNumber  string  `json:"claim_number"`
		PolicyNumber string  `json:"policy_number"`
		ClaimAmount  float64 `json:"claim_amount"`
		IncidentType string  `json:"incident_type"`
		IncidentDate string  `json:"incident_date"`
		ReportDate   string  `json:"report_date"`
		Parties      []struct {
			Name    string `json:"name"`
			Role    string `json:"role"`
			Insurer string `json:"insurer"`
		} `json:"parties"`
		Injuries []struct {
			Person      string `json:"person"`
			Severity    string `json:"severity"`
			Description string `json:"description"`
		} `json:"injuries"`
		Description        string `json:"description"`
		FaultDetermination string `json:"fault_determination"`
		AttorneyInvolved   bool   `json:"attorney_involved"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("decode extraction: %w", err)
	}

	data := &model.ExtractedData{
		ClaimNumber:        raw.ClaimNumber,
		PolicyNumber:       raw.PolicyNumber,
		ClaimAmount:        raw.ClaimAmount,
		IncidentType:       model.ClaimType(raw.IncidentType),
		Description:        raw.Description,
		FaultDetermination: raw.FaultDetermination,
		AttorneyInvolved:   raw.AttorneyInvolved,
	}
	if t, err := time.Parse("2006-01-02", raw.IncidentDate); err == nil {
		data.IncidentDate = &t
	}
	if t, err := time.Parse("2006-01-02", raw.ReportDate); err == nil {
		data.ReportDate = &t
	}
	for _, p := range raw.Parties {
		data.Parties = append(data.Parties, model.Party{Name: p.Name, Role: p.Role, Insurer: p.Insurer})
	}
	for _, i := range raw.Injuries {
		data.Injuries = append(data.Injuries, model.Injury{
			Person:      i.Person,
			Severity:    model.InjurySeverity(i.Severity),
			Description: i.Description,
		})
	}
	return data, nil
}
