package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/ledgerkit/walletcore/internal/settlement"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// settlementDocument is the Mongo shape of one settlement outcome.
type settlementDocument struct {
	OperationID   string    `bson:"operation_id,omitempty"`
	CorrelationID string    `bson:"correlation_id,omitempty"`
	WalletID      string    `bson:"wallet_id"`
	Kind          string    `bson:"kind"`
	Status        string    `bson:"status"`
	Amount        string    `bson:"amount"`
	Error         string    `bson:"error,omitempty"`
	ProcessedAt   time.Time `bson:"processed_at"`
}

// AuditRepository implements settlement.AuditRecorder: an append-only trail
// of settlement outcomes, kept out of the relational store.
type AuditRepository struct {
	collection *mongo.Collection
}

func NewAuditRepository(client *mongo.Client, dbName string) *AuditRepository {
	collection := client.Database(dbName).Collection("settlement_audit")
	return &AuditRepository{collection: collection}
}

func (r *AuditRepository) Record(ctx context.Context, entry settlement.AuditEntry) error {
	doc := settlementDocument{
		OperationID:   entry.OperationID,
		CorrelationID: entry.CorrelationID,
		WalletID:      entry.WalletID,
		Kind:          entry.Kind,
		Status:        entry.Status,
		Amount:        entry.Amount,
		Error:         entry.Error,
		ProcessedAt:   time.Now(),
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert settlement audit: %w", err)
	}
	return nil
}
