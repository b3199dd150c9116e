package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/celestix/gotgproto/storage"
	"github.com/gotd/td/tg"
	"github.com/mos9527/librespot-dl/downloader"
)

const (
	// supergroup and channel ids are exposed as -100<channel id>
	channelIDOffset = 1000000000000
	requestTimeout  = 5 * time.Second
)

// TelegramAPI defines the Telegram API operations needed by the progress reporter
type TelegramAPI interface {
	MessagesSendMessage(ctx context.Context, request *tg.MessagesSendMessageRequest) (tg.UpdatesClass, error)
	MessagesEditMessage(ctx context.Context, request *tg.MessagesEditMessageRequest) (tg.UpdatesClass, error)
}

// TelegramProgressReporter implements downloader.ProgressReporter by keeping a
// single chat message up to date with the batch progress
type TelegramProgressReporter struct {
	api       TelegramAPI
	chatID    int64
	peer      tg.InputPeerClass
	mu        sync.RWMutex
	messageID int
	title     string
	isActive  bool
	startTime time.Time
}

// NewTelegramProgressReporter creates a reporter that posts to chatID without
// an access hash, which is enough for basic groups
func NewTelegramProgressReporter(api TelegramAPI, chatID int64) *TelegramProgressReporter {
	return NewTelegramProgressReporterForPeer(api, chatID, inputPeer(chatID))
}

// NewTelegramProgressReporterForPeer creates a reporter that posts to an
// already resolved peer
func NewTelegramProgressReporterForPeer(api TelegramAPI, chatID int64, peer tg.InputPeerClass) *TelegramProgressReporter {
	return &TelegramProgressReporter{
		api:    api,
		chatID: chatID,
		peer:   peer,
	}
}

// StartTracking posts the initial message for a batch of total tracks
func (tpr *TelegramProgressReporter) StartTracking(ctx context.Context, title string, total int) error {
	tpr.mu.Lock()
	defer tpr.mu.Unlock()

	if tpr.isActive {
		return downloader.NewDownloadError(downloader.ErrorUnknown, "progress tracking is already active")
	}

	tpr.title = title
	tpr.isActive = true
	tpr.startTime = time.Now()
	tpr.messageID = 0

	message := fmt.Sprintf("🎵 **%s**\n\n⏳ Downloading %d track(s)...", title, total)
	messageID, err := tpr.sendMessage(ctx, message)
	if err != nil {
		tpr.isActive = false
		return downloader.NewDownloadErrorWithCause(downloader.ErrorNetworkFailure, "failed to send initial progress message", err)
	}

	tpr.messageID = messageID
	return nil
}

// UpdateProgress edits the message with the current batch progress
func (tpr *TelegramProgressReporter) UpdateProgress(progress downloader.Progress) error {
	tpr.mu.RLock()
	if !tpr.isActive || tpr.messageID == 0 {
		tpr.mu.RUnlock()
		return nil
	}
	messageID := tpr.messageID
	title := tpr.title
	tpr.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	return tpr.editMessage(ctx, messageID, formatProgressMessage(title, progress))
}

// ReportError replaces the message with a batch failure
func (tpr *TelegramProgressReporter) ReportError(err error) error {
	tpr.mu.RLock()
	if !tpr.isActive || tpr.messageID == 0 {
		tpr.mu.RUnlock()
		return nil
	}
	messageID := tpr.messageID
	title := tpr.title
	startTime := tpr.startTime
	tpr.mu.RUnlock()

	errorMsg := "An error occurred"
	var downloadErr *downloader.DownloadError
	if errors.As(err, &downloadErr) {
		errorMsg = downloadErr.Message
	} else if err != nil {
		errorMsg = err.Error()
	}

	message := fmt.Sprintf("🎵 **%s**\n\n❌ **Error**: %s\n\n⏱️ Elapsed: %s",
		title,
		errorMsg,
		time.Since(startTime).Round(time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	return tpr.editMessage(ctx, messageID, message)
}

// ReportComplete replaces the message with the batch summary
func (tpr *TelegramProgressReporter) ReportComplete(summary *downloader.Summary) error {
	tpr.mu.RLock()
	if !tpr.isActive || tpr.messageID == 0 {
		tpr.mu.RUnlock()
		return nil
	}
	messageID := tpr.messageID
	tpr.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	return tpr.editMessage(ctx, messageID, formatSummaryMessage(summary))
}

// Stop stops progress tracking and cleans up resources
func (tpr *TelegramProgressReporter) Stop() {
	tpr.mu.Lock()
	defer tpr.mu.Unlock()

	tpr.isActive = false
	tpr.messageID = 0
	tpr.title = ""
}

// IsActive returns whether the reporter is currently tracking a batch
func (tpr *TelegramProgressReporter) IsActive() bool {
	tpr.mu.RLock()
	defer tpr.mu.RUnlock()
	return tpr.isActive
}

// inputPeer maps a bot API style chat id onto an MTProto peer with no access hash
func inputPeer(chatID int64) tg.InputPeerClass {
	id, kind := splitChatID(chatID)
	switch kind {
	case storage.TypeUser:
		return &tg.InputPeerUser{UserID: id}
	case storage.TypeChannel:
		return &tg.InputPeerChannel{ChannelID: id}
	default:
		return &tg.InputPeerChat{ChatID: id}
	}
}

// sendMessage sends a new message and returns the message ID
func (tpr *TelegramProgressReporter) sendMessage(ctx context.Context, message string) (int, error) {
	if tpr.api == nil {
		return 0, downloader.NewDownloadError(downloader.ErrorUnknown, "telegram API is not initialized")
	}

	updates, err := tpr.api.MessagesSendMessage(ctx, &tg.MessagesSendMessageRequest{
		Peer:     tpr.peer,
		Message:  message,
		RandomID: time.Now().UnixNano(),
	})
	if err != nil {
		return 0, err
	}
	return extractMessageID(updates), nil
}

// editMessage edits an existing message
func (tpr *TelegramProgressReporter) editMessage(ctx context.Context, messageID int, message string) error {
	if tpr.api == nil {
		return downloader.NewDownloadError(downloader.ErrorUnknown, "telegram API is not initialized")
	}

	_, err := tpr.api.MessagesEditMessage(ctx, &tg.MessagesEditMessageRequest{
		Peer:    tpr.peer,
		ID:      messageID,
		Message: message,
	})
	return err
}

// extractMessageID extracts the message ID from Telegram API updates
func extractMessageID(updates tg.UpdatesClass) int {
	switch u := updates.(type) {
	case *tg.Updates:
		for _, update := range u.Updates {
			switch msgUpdate := update.(type) {
			case *tg.UpdateNewMessage:
				if msg, ok := msgUpdate.Message.(*tg.Message); ok {
					return msg.ID
				}
			case *tg.UpdateNewChannelMessage:
				if msg, ok := msgUpdate.Message.(*tg.Message); ok {
					return msg.ID
				}
			}
		}
	case *tg.UpdateShortSentMessage:
		return u.ID
	}
	return 0
}

func formatProgressMessage(title string, progress downloader.Progress) string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("🎵 **%s**\n\n", title))
	builder.WriteString("⬇️ Downloading...\n\n")
	builder.WriteString(fmt.Sprintf("📊 %s %.1f%%\n", createProgressBar(progress.Percentage, 20), progress.Percentage))
	builder.WriteString(fmt.Sprintf("🎶 %.1f / %d tracks\n", progress.Completed, progress.Total))
	builder.WriteString(fmt.Sprintf("\n⏱️ Elapsed: %s", progress.Elapsed.Round(time.Second)))

	return builder.String()
}

func formatSummaryMessage(summary *downloader.Summary) string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("🎵 **%s**\n\n", summary.Title))
	if summary.HasFailures() {
		builder.WriteString("⚠️ **Finished with failures**\n\n")
	} else {
		builder.WriteString("✅ **Download Complete!**\n\n")
	}
	builder.WriteString(fmt.Sprintf("✔️ %d downloaded\n", summary.Succeeded))
	if summary.Skipped > 0 {
		builder.WriteString(fmt.Sprintf("⏭️ %d skipped\n", summary.Skipped))
	}
	if summary.Failed > 0 {
		builder.WriteString(fmt.Sprintf("❌ %d failed\n", summary.Failed))
	}
	builder.WriteString(fmt.Sprintf("\n⏱️ Total time: %s", summary.Elapsed.Round(time.Second)))

	return builder.String()
}

// createProgressBar creates a visual progress bar
func createProgressBar(percentage float64, length int) string {
	if percentage < 0 {
		percentage = 0
	}
	if percentage > 100 {
		percentage = 100
	}

	filled := int((percentage / 100.0) * float64(length))
	return strings.Repeat("█", filled) + strings.Repeat("░", length-filled)
}
