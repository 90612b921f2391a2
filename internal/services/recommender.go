package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Recommender ranks catalog products for a shopper given the names of
// products they bought before. Implementations may return fewer ids than
// the catalog holds, and ids not in the catalog are ignored by callers.
type Recommender interface {
	Name() string
	Recommend(ctx context.Context, history []string, catalog []models.Product) ([]uuid.UUID, error)
}

var errRecommenderNotConfigured = errors.New("recommender not configured")

// PopularityRecommender ranks the catalog by how often each product has been
// ordered by anyone, breaking ties by catalog order.
type PopularityRecommender struct {
	db *gorm.DB
}

func NewPopularityRecommender(db *gorm.DB) *PopularityRecommender {
	return &PopularityRecommender{db: db}
}

func (r *PopularityRecommender) Name() string { return "popularity" }

func (r *PopularityRecommender) Recommend(_ context.Context, _ []string, catalog []models.Product) ([]uuid.UUID, error) {
	counts, err := orderCounts(r.db)
	if err != nil {
		return nil, err
	}
	ranked := rankByCount(catalog, counts)
	ids := make([]uuid.UUID, len(ranked))
	for i, p := range ranked {
		ids[i] = p.ID
	}
	return ids, nil
}

type productCount struct {
	ProductID uuid.UUID
	Count     int64
}

// orderCounts returns how many order items reference each product.
func orderCounts(db *gorm.DB) (map[uuid.UUID]int64, error) {
	var rows []productCount
	err := db.Model(&models.OrderItem{}).
		Select("product_id, COUNT(*) AS count").
		Group("product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count order items: %w", err)
	}
	counts := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		counts[row.ProductID] = row.Count
	}
	return counts, nil
}

// rankByCount returns a copy of catalog sorted by descending count. The sort
// is stable so equal counts keep catalog order.
func rankByCount(catalog []models.Product, counts map[uuid.UUID]int64) []models.Product {
	ranked := make([]models.Product, len(catalog))
	copy(ranked, catalog)
	sort.SliceStable(ranked, func(i, j int) bool {
		return counts[ranked[i].ID] > counts[ranked[j].ID]
	})
	return ranked
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

type llmSuggestion struct {
	Products []string `json:"products"`
}

const recommendPrompt = `You are a grocery store recommendation engine. Given a customer's past purchases and the store catalog, pick 4 catalog products the customer is likely to want next. Respond with JSON only (no markdown, no code fences): {"products": ["<exact catalog name>", ...]}. Use catalog names exactly as written.`

// LLMRecommender asks an OpenAI-compatible chat completions endpoint for
// product names and maps them back to the catalog by exact name.
type LLMRecommender struct {
	apiKey string
	apiURL string
	model  string
	client *http.Client
}

func NewLLMRecommender(apiKey, apiURL, model string, timeout time.Duration) *LLMRecommender {
	return &LLMRecommender{
		apiKey: apiKey,
		apiURL: apiURL,
		model:  model,
		client: &http.Client{Timeout: timeout},
	}
}

func (r *LLMRecommender) Name() string { return "llm" }

func (r *LLMRecommender) Recommend(ctx context.Context, history []string, catalog []models.Product) ([]uuid.UUID, error) {
	if r.apiKey == "" {
		return nil, errRecommenderNotConfigured
	}

	names := make([]string, len(catalog))
	byName := make(map[string]uuid.UUID, len(catalog))
	for i, p := range catalog {
		names[i] = p.Name
		if _, seen := byName[p.Name]; !seen {
			byName[p.Name] = p.ID
		}
	}

	reqBody := openAIChatRequest{
		Model: r.model,
		Messages: []openAIMessage{
			{Role: "system", Content: recommendPrompt},
			{Role: "user", Content: fmt.Sprintf("Past purchases: %s\nCatalog: %s",
				strings.Join(history, ", "), strings.Join(names, ", "))},
		},
		Temperature: 0.3,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("openai returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var chatResp openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("failed to decode openai response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, errors.New("openai returned no choices")
	}

	content := stripCodeFence(chatResp.Choices[0].Message.Content)

	var suggestion llmSuggestion
	if err := json.Unmarshal([]byte(content), &suggestion); err != nil {
		return nil, fmt.Errorf("failed to parse recommendation: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(suggestion.Products))
	for _, name := range suggestion.Products {
		if id, ok := byName[strings.TrimSpace(name)]; ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		lines := strings.Split(content, "\n")
		if len(lines) > 2 {
			content = strings.Join(lines[1:len(lines)-1], "\n")
		}
	}
	return content
}
