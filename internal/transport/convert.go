package transport

import (
	"github.com/imelnik/syncmesh/internal/models"
	"github.com/imelnik/syncmesh/pkg/api"
)

// toAPIOperations конвертирует конверты в проводной формат
func toAPIOperations(envelopes []*models.SecureCrdtOperation) []api.SecureOperation {
	ops := make([]api.SecureOperation, 0, len(envelopes))
	for _, env := range envelopes {
		ops = append(ops, api.SecureOperation{
			ID:         env.ID,
			SourceID:   env.SourceID,
			Type:       env.Type,
			Timestamp:  env.Timestamp,
			Clock:      env.Clock,
			Ciphertext: env.Ciphertext,
			Nonce:      env.Nonce,
			AuthTag:    env.AuthTag,
			Signature:  env.Signature,
		})
	}
	return ops
}

// fromAPIOperations конвертирует проводной формат в конверты
func fromAPIOperations(ops []api.SecureOperation) []*models.SecureCrdtOperation {
	envelopes := make([]*models.SecureCrdtOperation, 0, len(ops))
	for _, op := range ops {
		envelopes = append(envelopes, &models.SecureCrdtOperation{
			ID:         op.ID,
			SourceID:   op.SourceID,
			Type:       op.Type,
			Timestamp:  op.Timestamp,
			Clock:      op.Clock,
			Ciphertext: op.Ciphertext,
			Nonce:      op.Nonce,
			AuthTag:    op.AuthTag,
			Signature:  op.Signature,
		})
	}
	return envelopes
}

// toAPIDecisions конвертирует решения в проводной формат
func toAPIDecisions(decisions map[string]models.Decision) map[string]api.Decision {
	out := make(map[string]api.Decision, len(decisions))
	for id, d := range decisions {
		out[id] = api.Decision{
			Code:   string(d.Code),
			Reason: d.Reason,
			OK:     d.OK,
		}
	}
	return out
}

// fromAPIDecisions конвертирует решения из проводного формата
func fromAPIDecisions(decisions map[string]api.Decision) map[string]models.Decision {
	out := make(map[string]models.Decision, len(decisions))
	for id, d := range decisions {
		out[id] = models.Decision{
			Code:   models.ViolationCode(d.Code),
			Reason: d.Reason,
			OK:     d.OK,
		}
	}
	return out
}
