// Package client talks to the two backend services: the transaction
// service that accepts withdrawals and top-ups, and the account service that
// reports balances and history. Calls are single request/response pairs with
// no retry and no timeout beyond the request context.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"banking-ui/metrics"
	"banking-ui/models"
)

const maxErrorBody = 4 << 10

type Client struct {
	transactionURL string
	accountURL     string
	httpClient     *http.Client
	logger         *zap.Logger
}

func New(transactionURL, accountURL string, logger *zap.Logger) *Client {
	return &Client{
		transactionURL: strings.TrimRight(transactionURL, "/"),
		accountURL:     strings.TrimRight(accountURL, "/"),
		httpClient:     &http.Client{},
		logger:         logger,
	}
}

// SubmitTransaction posts req to the transaction service. A FAILED business
// outcome is returned as a response, not as an error, even when the service
// answers with a non-2xx status.
func (c *Client) SubmitTransaction(ctx context.Context, req models.TransactionRequest) (models.TransactionResponse, error) {
	const op = "submit_transaction"

	payload, err := json.Marshal(req)
	if err != nil {
		return models.TransactionResponse{}, fmt.Errorf("failed to marshal transaction: %w", err)
	}

	c.logger.Info("submitting transaction",
		zap.String("card_number", req.CardNumber),
		zap.String("type", string(req.Type)),
		zap.Float64("amount", req.Amount))

	var resp models.TransactionResponse
	status, body, err := c.do(ctx, op, http.MethodPost, c.transactionURL+"/api/transaction", payload, &resp)
	if err != nil {
		return models.TransactionResponse{}, err
	}
	if status < 200 || status > 299 {
		if resp.Status == "" {
			return models.TransactionResponse{}, c.statusError(op, status, body)
		}
		c.logger.Info("transaction service reported failure",
			zap.Int("status_code", status),
			zap.String("status", string(resp.Status)),
			zap.String("message", resp.Message))
	}
	return resp, nil
}

func (c *Client) GetBalance(ctx context.Context, cardNumber string) (models.Balance, error) {
	var b models.Balance
	err := c.get(ctx, "get_balance", c.accountURL+"/api/balance/"+url.PathEscape(cardNumber), &b)
	return b, err
}

func (c *Client) GetCustomerTransactions(ctx context.Context, cardNumber string) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := c.get(ctx, "get_customer_transactions", c.accountURL+"/api/transactions/customer/"+url.PathEscape(cardNumber), &txs)
	if err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	return txs, nil
}

func (c *Client) GetAllTransactions(ctx context.Context) ([]models.Transaction, error) {
	var txs []models.Transaction
	if err := c.get(ctx, "get_all_transactions", c.accountURL+"/api/transactions/all", &txs); err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	return txs, nil
}

func (c *Client) get(ctx context.Context, op, endpoint string, out any) error {
	status, body, err := c.do(ctx, op, http.MethodGet, endpoint, nil, out)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return c.statusError(op, status, body)
	}
	return nil
}

// do performs one request and decodes the body into out whenever it is JSON.
// It returns the raw body for non-2xx responses so callers can report it.
func (c *Client) do(ctx context.Context, op, method, endpoint string, payload []byte, out any) (int, []byte, error) {
	start := time.Now()
	outcome := "error"
	defer func() {
		metrics.BackendRequestsTotal.WithLabelValues(op, outcome).Inc()
		metrics.BackendRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			outcome = "canceled"
			return 0, nil, fmt.Errorf("%s: %w", op, ctx.Err())
		}
		c.logger.Error("backend request failed",
			zap.String("operation", op),
			zap.String("url", endpoint),
			zap.Error(err))
		return 0, nil, fmt.Errorf("%s: failed to send request: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("failed to read backend response",
			zap.String("operation", op),
			zap.Error(err))
		return 0, nil, fmt.Errorf("%s: failed to read response: %w", op, err)
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode <= 299
	if err := json.Unmarshal(body, out); err != nil {
		if ok {
			c.logger.Error("failed to decode backend response",
				zap.String("operation", op),
				zap.Error(err))
			return 0, nil, fmt.Errorf("%s: failed to decode response: %w", op, err)
		}
	}
	if ok {
		outcome = "ok"
	} else {
		outcome = "status_" + strconv.Itoa(resp.StatusCode)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) statusError(op string, status int, body []byte) error {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	c.logger.Error("backend returned non-OK status",
		zap.String("operation", op),
		zap.Int("status_code", status),
		zap.String("response", string(body)))
	return &StatusError{Operation: op, Code: status, Body: string(body)}
}
