// Copyright 2024 AI SA Assistant Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/swire-renewables/intelligence-assistant/internal/resilience"
)

const (
	// FinanceToolName is the registry name of the finance tool
	FinanceToolName = "finance"

	// FinanceFallback is returned whenever the upstream data source is unusable
	FinanceFallback = "Monthly Financial Summary: Revenue $486,900, Expenses $340,830, Net Profit $146,070 (30% margin)"

	financeSampleSize   = 10
	financeRevenueScale = 1000.0
	financeExpenseRatio = 0.7
)

type productList struct {
	Products []struct {
		Price float64 `json:"price"`
	} `json:"products"`
}

// FinanceTool derives a monthly financial summary from a product price feed
type FinanceTool struct {
	sourceURL  string
	httpClient *http.Client
	breaker    *resilience.Breaker
	logger     *zap.Logger
}

// NewFinanceTool creates a finance tool reading from sourceURL
func NewFinanceTool(sourceURL string, timeout time.Duration, logger *zap.Logger) *FinanceTool {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FinanceTool{
		sourceURL:  sourceURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// WithBreaker guards the price feed with b. While b is open the canned
// summary is returned without calling the feed.
func (f *FinanceTool) WithBreaker(b *resilience.Breaker) *FinanceTool {
	f.breaker = b
	return f
}

// Name implements Tool
func (f *FinanceTool) Name() string { return FinanceToolName }

// Description implements Tool
func (f *FinanceTool) Description() string {
	return "Get financial data including revenue, expenses, and profit summaries"
}

// Parameters implements Tool
func (f *FinanceTool) Parameters() []string { return []string{"query_params"} }

// Run fetches the price feed and summarizes it. Upstream failures are
// logged and answered with the canned summary.
func (f *FinanceTool) Run(ctx context.Context, _ string) (string, error) {
	var revenue float64
	fetch := func(ctx context.Context) error {
		var err error
		revenue, err = f.fetchRevenue(ctx)
		return err
	}

	var err error
	if f.breaker != nil {
		err = f.breaker.Do(ctx, fetch)
	} else {
		err = fetch(ctx)
	}
	if err != nil {
		f.logger.Warn("Finance source unavailable, using fallback summary",
			zap.String("source_url", f.sourceURL),
			zap.Error(err),
		)
		return FinanceFallback, nil
	}

	return FormatFinancialSummary(revenue), nil
}

func (f *FinanceTool) fetchRevenue(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.sourceURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build finance request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("finance request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("finance source returned status %d", resp.StatusCode)
	}

	var products productList
	if err := json.NewDecoder(resp.Body).Decode(&products); err != nil {
		return 0, fmt.Errorf("failed to decode finance data: %w", err)
	}
	if len(products.Products) == 0 {
		return 0, fmt.Errorf("finance source returned no products")
	}

	var total float64
	for i, product := range products.Products {
		if i == financeSampleSize {
			break
		}
		total += product.Price
	}

	return total * financeRevenueScale, nil
}

// FormatFinancialSummary renders revenue, expenses and net profit
func FormatFinancialSummary(revenue float64) string {
	expenses := revenue * financeExpenseRatio
	profit := revenue - expenses

	margin := 0.0
	if revenue != 0 {
		margin = profit / revenue * 100
	}

	return fmt.Sprintf("Monthly Financial Summary:\nRevenue: $%s\nExpenses: $%s\nNet Profit: $%s\nProfit Margin: %.0f%%",
		formatAmount(revenue), formatAmount(expenses), formatAmount(profit), margin)
}

// formatAmount renders a value with thousands separators and two decimals
func formatAmount(value float64) string {
	negative := value < 0
	cents := int64(math.Round(math.Abs(value) * 100))

	whole := strconv.FormatInt(cents/100, 10)
	var b strings.Builder
	for i, digit := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}

	out := fmt.Sprintf("%s.%02d", b.String(), cents%100)
	if negative {
		return "-" + out
	}
	return out
}
