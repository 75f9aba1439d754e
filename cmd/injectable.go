package cmd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/kdeps/kxlate/pkg/history"
	"github.com/kdeps/kxlate/pkg/llm"
	"github.com/kdeps/kxlate/pkg/queue"
	"github.com/kdeps/kxlate/pkg/storage"
)

// Injectable functions for testability (shared across cmd package)
var (
	// Backends
	NewModelFn    = llm.New
	OpenStoreFn   = storage.Open
	OpenHistoryFn = history.Open

	// RabbitMQ
	NewConsumerFn = queue.NewConsumer
	NewProducerFn = queue.NewProducer

	// Forwarding
	HTTPClient = &http.Client{Timeout: 15 * time.Minute}

	// Output function
	PrintlnFn = fmt.Println
)
