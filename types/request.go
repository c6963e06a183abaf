package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// DateLayout is the wire format of scan dates.
const DateLayout = "2006-01-02"

// PoolType selects the stock universe a scan traverses.
type PoolType string

const (
	PoolHS300  PoolType = "hs300"
	PoolZZ1000 PoolType = "zz1000"
	// PoolTest is a small server-defined slice of the default universe.
	PoolTest PoolType = "test"
	// PoolCustom scans exactly the codes given in CustomPool.
	PoolCustom PoolType = "custom"
)

// Valid returns true for known pool types.
func (p PoolType) Valid() bool {
	switch p {
	case PoolHS300, PoolZZ1000, PoolTest, PoolCustom:
		return true
	default:
		return false
	}
}

// ScanRequest starts a scan job.
type ScanRequest struct {
	Date       string   `json:"date" yaml:"date"`
	Strategies []string `json:"strategies" yaml:"strategies"`
	PoolType   PoolType `json:"pool_type" yaml:"pool_type"`
	CustomPool []string `json:"custom_pool,omitempty" yaml:"custom_pool,omitempty"`
}

// Validate checks the request before any network activity.
// custom_pool is required and non-empty iff pool_type is custom.
func (r *ScanRequest) Validate() error {
	if r == nil {
		return errors.New("scan request is nil")
	}
	if _, err := time.Parse(DateLayout, r.Date); err != nil {
		return fmt.Errorf("date must be YYYY-MM-DD, got %q", r.Date)
	}
	if len(r.Strategies) == 0 {
		return errors.New("at least one strategy is required")
	}
	for i, s := range r.Strategies {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("strategy %d is empty", i)
		}
	}
	if !r.PoolType.Valid() {
		return fmt.Errorf("invalid pool_type %q (must be hs300, zz1000, test, or custom)", r.PoolType)
	}
	if r.PoolType == PoolCustom && len(r.CustomPool) == 0 {
		return errors.New("custom_pool is required when pool_type is custom")
	}
	if r.PoolType != PoolCustom && len(r.CustomPool) > 0 {
		return fmt.Errorf("custom_pool is only allowed when pool_type is custom, got %q", r.PoolType)
	}
	return nil
}

// ParseCustomPool splits user input on commas, whitespace and newlines,
// dropping empty entries.
func ParseCustomPool(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// ChatContext hints the assistant at the topic of a conversation.
type ChatContext string

const (
	ChatContextGeneral  ChatContext = "general"
	ChatContextStrategy ChatContext = "strategy"
	ChatContextCode     ChatContext = "code"
)

// ChatRequest starts a chat job.
type ChatRequest struct {
	Message string      `json:"message"`
	Context ChatContext `json:"context,omitempty"`
}

// Validate checks the request before any network activity.
func (r *ChatRequest) Validate() error {
	if r == nil {
		return errors.New("chat request is nil")
	}
	if strings.TrimSpace(r.Message) == "" {
		return errors.New("message is required")
	}
	switch r.Context {
	case "", ChatContextGeneral, ChatContextStrategy, ChatContextCode:
		return nil
	default:
		return fmt.Errorf("invalid context %q (must be general, strategy, or code)", r.Context)
	}
}
