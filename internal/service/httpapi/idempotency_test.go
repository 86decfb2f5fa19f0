package httpapi_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/vladislavdragonenkov/cafe/internal/service/httpapi"
)

func (s *APISuite) postOrder(key string, body any) (*http.Response, []byte) {
	raw, err := json.Marshal(body)
	s.Require().NoError(err)

	req, err := http.NewRequest(http.MethodPost, s.server.URL+"/api/orders", bytes.NewReader(raw))
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(httpapi.IdempotencyKeyHeader, key)
	}

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	return resp, data
}

func (s *APISuite) TestIdempotentOrderCreation() {
	order := map[string]any{"customerName": "Anna", "drink": "Latte", "quantity": 1}

	first, firstBody := s.postOrder("retry-1", order)
	s.Require().Equal(http.StatusCreated, first.StatusCode, string(firstBody))
	s.Empty(first.Header.Get(httpapi.IdempotentReplayHeader))

	again, againBody := s.postOrder("retry-1", order)
	s.Require().Equal(http.StatusCreated, again.StatusCode)
	s.Equal("true", again.Header.Get(httpapi.IdempotentReplayHeader))
	s.JSONEq(string(firstBody), string(againBody))

	code, body := s.do(http.MethodGet, "/api/orders", nil)
	s.Require().Equal(http.StatusOK, code)
	var orders []map[string]any
	s.decode(body, &orders)
	s.Len(orders, 1, "replayed request must not create a second order")

	other := map[string]any{"customerName": "Anna", "drink": "Mocha", "quantity": 1}
	conflict, conflictBody := s.postOrder("retry-1", other)
	s.Equal(http.StatusUnprocessableEntity, conflict.StatusCode, string(conflictBody))

	fresh, _ := s.postOrder("", order)
	s.Equal(http.StatusCreated, fresh.StatusCode)

	_, body = s.do(http.MethodGet, "/api/orders", nil)
	s.decode(body, &orders)
	s.Len(orders, 2)
}

func (s *APISuite) TestIdempotentOrderCreation_ReplaysValidationFailure() {
	invalid := map[string]any{"customerName": "", "drink": "Latte", "quantity": 0}

	first, firstBody := s.postOrder("bad-1", invalid)
	s.Require().Equal(http.StatusBadRequest, first.StatusCode)
	s.ElementsMatch([]string{"customerName", "quantity"}, s.fields(firstBody))

	again, againBody := s.postOrder("bad-1", invalid)
	s.Equal(http.StatusBadRequest, again.StatusCode)
	s.Equal("true", again.Header.Get(httpapi.IdempotentReplayHeader))
	s.JSONEq(string(firstBody), string(againBody))
}

func (s *APISuite) TestIdempotencyKeyTooLong() {
	key := string(bytes.Repeat([]byte("k"), 129))
	resp, body := s.postOrder(key, map[string]any{"customerName": "Anna", "drink": "Latte", "quantity": 1})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal([]string{httpapi.IdempotencyKeyHeader}, s.fields(body))
}
