package broadcast

import (
	"errors"
	"log/slog"

	"github.com/pscheid92/ecotrack/internal/domain"
	"github.com/pscheid92/ecotrack/internal/metrics"
	"github.com/pscheid92/ecotrack/internal/protocol"
)

const unknownTypeLabel = "unknown"

// handleMessage runs decode, store call and fan-out for one frame on the actor goroutine.
// Every failure degrades to a log line; nothing is ever sent back to the sender alone.
func (h *Hub) handleMessage(c messageCmd) {
	start := h.clock.Now()
	defer func() {
		metrics.MessageProcessingDuration.Observe(h.clock.Since(start).Seconds())
	}()

	logger := slog.Default()
	if cw, ok := h.activeClients[c.connection]; ok {
		logger = logger.With("client_id", cw.id.String())
	}

	msg, err := protocol.Decode(c.data)
	if err != nil {
		metrics.MessageDecodeErrorsTotal.Inc()
		logger.WarnContext(c.ctx, "Dropping undecodable message", "error", err)
		return
	}

	switch m := msg.(type) {
	case protocol.CreateBin:
		metrics.MessagesReceivedTotal.WithLabelValues(m.MessageType()).Inc()
		bin := h.store.Create(m.Latitude, m.Longitude)
		logger.InfoContext(c.ctx, "Bin created", "bin_id", bin.ID, "latitude", bin.Latitude, "longitude", bin.Longitude)
		h.fanOut(protocol.NewBinCreated(bin))

	case protocol.DeleteBin:
		metrics.MessagesReceivedTotal.WithLabelValues(m.MessageType()).Inc()
		if !h.store.Delete(m.ID) {
			logger.InfoContext(c.ctx, "Delete ignored, bin not found", "bin_id", m.ID)
			return
		}
		logger.InfoContext(c.ctx, "Bin deleted", "bin_id", m.ID)
		h.fanOut(protocol.NewBinDeleted(m.ID))

	case protocol.EditBin:
		metrics.MessagesReceivedTotal.WithLabelValues(m.MessageType()).Inc()
		bin, ok := h.store.EditLocation(m.OldLatitude, m.OldLongitude, m.NewLatitude, m.NewLongitude)
		if !ok {
			logger.InfoContext(c.ctx, "Edit ignored, no bin at location",
				"old_latitude", m.OldLatitude,
				"old_longitude", m.OldLongitude,
			)
			return
		}
		logger.InfoContext(c.ctx, "Bin edited", "bin_id", bin.ID, "latitude", bin.Latitude, "longitude", bin.Longitude)
		h.fanOut(protocol.NewBinEdited(bin))

	case protocol.UpdateBinStatus:
		metrics.MessagesReceivedTotal.WithLabelValues(m.MessageType()).Inc()
		bin, err := h.store.UpdateStatus(m.ID, m.Status)
		switch {
		case errors.Is(err, domain.ErrBinNotFound):
			logger.WarnContext(c.ctx, "Status update ignored, bin not found", "bin_id", m.ID)
			return
		case errors.Is(err, domain.ErrInvalidStatus):
			logger.WarnContext(c.ctx, "Status update rejected", "bin_id", m.ID, "status", m.Status)
			return
		case err != nil:
			logger.ErrorContext(c.ctx, "Status update failed", "bin_id", m.ID, "error", err)
			return
		}
		logger.InfoContext(c.ctx, "Bin status updated", "bin_id", bin.ID, "status", bin.Status)
		h.fanOut(protocol.NewBinStatusChanged(bin))

	case protocol.ClientLocation:
		metrics.MessagesReceivedTotal.WithLabelValues(m.MessageType()).Inc()
		logger.DebugContext(c.ctx, "Client location", "latitude", m.Latitude, "longitude", m.Longitude)

	default:
		metrics.MessagesReceivedTotal.WithLabelValues(unknownTypeLabel).Inc()
		logger.InfoContext(c.ctx, "Unknown message type", "type", msg.MessageType())
	}
}
