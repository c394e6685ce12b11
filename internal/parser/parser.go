// Package parser turns raw statement text into structured transaction
// candidates via an LLM structured-extraction call.
package parser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"
)

var (
	// ErrUnparseable means the model answered but neither the strict nor
	// the fenced-block decode produced transactions.
	ErrUnparseable = errors.New("unparseable model response")
	// ErrTimeout means the parsing call exceeded its budget.
	ErrTimeout = errors.New("transaction parsing timed out")
)

// Type mirrors the transaction type the model is asked to emit.
type Type string

const (
	TypeIncome  Type = "income"
	TypeExpense Type = "expense"
)

// ParsedTransaction is one extracted transaction candidate. Amounts are
// always positive magnitudes; the sign is conveyed by Type.
type ParsedTransaction struct {
	Amount            decimal.Decimal `json:"amount"`
	Description       string          `json:"description"`
	Date              time.Time       `json:"date"`
	Type              Type            `json:"type"`
	SuggestedCategory string          `json:"suggested_category,omitempty"`
}

// ChatCompleter is the slice of the OpenAI client the parser needs.
// *openai.Client satisfies it.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Parser struct {
	chat    ChatCompleter
	model   string
	timeout time.Duration
	now     func() time.Time
}

func New(chat ChatCompleter, model string, timeout time.Duration) *Parser {
	return &Parser{
		chat:    chat,
		model:   model,
		timeout: timeout,
		now:     time.Now,
	}
}

const systemPromptTemplate = `You are a financial transaction parser. Extract transactions from financial statement text and return them as a JSON array.

Rules:
- Extract all transactions (both income and expenses)
- Parse amounts as positive numbers (the type field indicates income/expense)
- Extract dates in YYYY-MM-DD format. IMPORTANT: If the year is not specified in the text, assume the current year is %d. If a specific year IS in the text, use that year. If NO date can be found in the text, use today's date: %s.
- Extract clear descriptions of each transaction%s
- Return ONLY valid JSON, no additional text
- If no transactions found, return empty array []

Example format:
[
  {
    "amount": 45.50,
    "description": "Coffee Shop Purchase",
    "date": "2024-01-15",
    "type": "expense",
    "suggested_category": "Food"
  },
  {
    "amount": 1200.00,
    "description": "Salary Deposit",
    "date": "2024-01-01",
    "type": "income",
    "suggested_category": null
  }
]`

func (p *Parser) systemPrompt(categoryNames []string) string {
	categoryContext := "\n- Suggest appropriate category names when possible"
	if len(categoryNames) > 0 {
		categoryContext = fmt.Sprintf(
			"\n- Suggest category names ONLY from this list: %s. If no category from this list fits, suggest a new one or return null.",
			strings.Join(categoryNames, ", "),
		)
	}

	today := p.now()

	return fmt.Sprintf(systemPromptTemplate, today.Year(), today.Format(time.DateOnly), categoryContext)
}

// Parse extracts transactions from text, biasing category suggestions
// toward categoryNames when the list is non-empty. Items missing amount,
// description, or type are dropped silently; only a total decode failure is
// an error.
func (p *Parser) Parse(ctx context.Context, text string, categoryNames []string) ([]ParsedTransaction, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: p.systemPrompt(categoryNames),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: "Extract transactions from this financial statement:\n\n" + text,
			},
		},
		Temperature: 0.3,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, p.timeout)
		}

		return nil, fmt.Errorf("llm call: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", ErrUnparseable)
	}

	items, err := decodeItems(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	return p.normalize(items), nil
}

// rawItem is the model's wire schema. Pointer fields distinguish absent
// values from zero values for the filtering pass.
type rawItem struct {
	Amount            *decimal.Decimal `json:"amount"`
	Description       string           `json:"description"`
	Date              string           `json:"date"`
	Type              string           `json:"type"`
	SuggestedCategory *string          `json:"suggested_category"`
}

// envelope tolerates the {"transactions": [...]} wrapper some models emit
// instead of a bare array.
type envelope struct {
	Transactions []rawItem `json:"transactions"`
}

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\[.*?\\]|\\{.*?\\})\\s*```")

// decodeItems is the two-stage decode contract: strict decode first, then a
// fenced-code-block extraction. Both failures compose into ErrUnparseable.
func decodeItems(content string) ([]rawItem, error) {
	items, strictErr := decodePayload(content)
	if strictErr == nil {
		return items, nil
	}

	match := fencedJSON.FindStringSubmatch(content)
	if match == nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, strictErr)
	}

	items, fencedErr := decodePayload(match[1])
	if fencedErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, fencedErr)
	}

	return items, nil
}

func decodePayload(payload string) ([]rawItem, error) {
	payload = strings.TrimSpace(payload)

	var items []rawItem
	if err := json.Unmarshal([]byte(payload), &items); err == nil {
		return items, nil
	}

	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return nil, err
	}

	return env.Transactions, nil
}

func (p *Parser) normalize(items []rawItem) []ParsedTransaction {
	now := p.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	parsed := make([]ParsedTransaction, 0, len(items))

	for _, item := range items {
		// Partial extraction is acceptable: drop incomplete items, keep
		// the rest.
		if item.Amount == nil || item.Amount.IsZero() || strings.TrimSpace(item.Description) == "" || item.Type == "" {
			continue
		}

		date := today
		if item.Date != "" {
			if d, err := time.Parse(time.DateOnly, item.Date); err == nil {
				date = d
			}
		}

		txType := TypeExpense
		if item.Type == string(TypeIncome) {
			txType = TypeIncome
		}

		var suggested string
		if item.SuggestedCategory != nil {
			suggested = strings.TrimSpace(*item.SuggestedCategory)
		}

		parsed = append(parsed, ParsedTransaction{
			Amount:            item.Amount.Abs(),
			Description:       strings.TrimSpace(item.Description),
			Date:              date,
			Type:              txType,
			SuggestedCategory: suggested,
		})
	}

	return parsed
}
