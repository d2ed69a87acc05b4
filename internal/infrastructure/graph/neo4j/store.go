package neo4j

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/kirillkom/agrisense-rag/internal/core/domain"
	"github.com/kirillkom/agrisense-rag/internal/core/ports"
	"github.com/kirillkom/agrisense-rag/internal/infrastructure/resilience"
)

const (
	defaultDatabase      = "neo4j"
	defaultFullTextIndex = "chunk_content"
	defaultVectorIndex   = "chunk_embedding"
	defaultTxTimeout     = 30 * time.Second
)

type Config struct {
	URI           string
	Username      string
	Password      string
	Database      string
	FullTextIndex string
	VectorIndex   string
	TxTimeout     time.Duration
}

// Store reads passages from the document graph. The driver is safe for
// concurrent use; each read opens its own session.
type Store struct {
	driver        neo4j.DriverWithContext
	database      string
	fulltextIndex string
	vectorIndex   string
	txTimeout     time.Duration
	executor      *resilience.Executor
}

func New(cfg Config, executor *resilience.Executor) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "create neo4j driver", err)
	}
	return NewWithDriver(driver, cfg, executor), nil
}

func NewWithDriver(driver neo4j.DriverWithContext, cfg Config, executor *resilience.Executor) *Store {
	if cfg.Database == "" {
		cfg.Database = defaultDatabase
	}
	if cfg.FullTextIndex == "" {
		cfg.FullTextIndex = defaultFullTextIndex
	}
	if cfg.VectorIndex == "" {
		cfg.VectorIndex = defaultVectorIndex
	}
	if cfg.TxTimeout <= 0 {
		cfg.TxTimeout = defaultTxTimeout
	}
	return &Store{
		driver:        driver,
		database:      cfg.Database,
		fulltextIndex: cfg.FullTextIndex,
		vectorIndex:   cfg.VectorIndex,
		txTimeout:     cfg.TxTimeout,
		executor:      executor,
	}
}

func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.driver.VerifyConnectivity(ctx); err != nil {
		return wrapTemporaryIfNeeded("neo4j ping", err)
	}
	return nil
}

// ReadSnapshot runs fn against a querier bound to one managed read
// transaction, so the three searches observe the same snapshot.
func (s *Store) ReadSnapshot(ctx context.Context, fn func(context.Context, ports.PassageQuerier) error) error {
	return s.executeRead(ctx, "neo4j.read_passages", func(ctx context.Context, tx neo4j.ManagedTransaction) error {
		return fn(ctx, &querier{
			tx:            tx,
			fulltextIndex: s.fulltextIndex,
			vectorIndex:   s.vectorIndex,
		})
	})
}

func (s *Store) ListDocumentChunks(ctx context.Context, documentName string) ([]domain.DocumentChunk, error) {
	var chunks []domain.DocumentChunk
	err := s.executeRead(ctx, "neo4j.list_chunks", func(ctx context.Context, tx neo4j.ManagedTransaction) error {
		res, err := tx.Run(ctx, listChunksByDocumentCypher, map[string]any{
			"document_name": documentName,
		})
		if err != nil {
			return err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return err
		}

		chunks = make([]domain.DocumentChunk, 0, len(records))
		for _, record := range records {
			id, content, err := idAndContent(record)
			if err != nil {
				return err
			}
			chunks = append(chunks, domain.DocumentChunk{ID: id, Content: content})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

func (s *Store) executeRead(
	ctx context.Context,
	operation string,
	work func(context.Context, neo4j.ManagedTransaction) error,
) error {
	call := func(callCtx context.Context) error {
		session := s.driver.NewSession(callCtx, neo4j.SessionConfig{
			DatabaseName: s.database,
			AccessMode:   neo4j.AccessModeRead,
		})
		defer session.Close(callCtx)

		_, err := session.ExecuteRead(callCtx, func(tx neo4j.ManagedTransaction) (any, error) {
			return nil, work(callCtx, tx)
		}, neo4j.WithTxTimeout(s.txTimeout))
		return err
	}

	var err error
	if s.executor != nil {
		// The driver already retries transient transaction failures.
		err = s.executor.ExecuteOnce(ctx, operation, call, classifyNeo4jError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(operation, err)
	}
	return nil
}

func idAndContent(record *neo4j.Record) (string, string, error) {
	rawID, ok := record.Get("id")
	if !ok || rawID == nil {
		return "", "", errors.New("record without id")
	}
	rawContent, _ := record.Get("content")
	content, _ := rawContent.(string)

	switch id := rawID.(type) {
	case string:
		return id, content, nil
	case int64:
		return fmt.Sprintf("%d", id), content, nil
	default:
		return fmt.Sprint(id), content, nil
	}
}
