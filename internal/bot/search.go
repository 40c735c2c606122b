package bot

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"kartoteka.org/internal/obs"
	"kartoteka.org/internal/person"
)

const (
	searchPrompt = "🔍 <b>Поиск в базе данных</b>\n\n" +
		"<i>Введите поисковый запрос (ФИО, телефон, номер авто, адрес или паспорт):</i>"
	searchNothingFound = "🔍 <b>Ничего не найдено</b>\n\n<i>Попробуйте изменить поисковый запрос</i>"
	searchFailed       = "❌ <b>Ошибка поиска.</b> Попробуйте позже."
)

// beginSearch opens the awaiting-query session behind the search button.
func (r *Router) beginSearch(ctx context.Context, msg Message, prompt string) error {
	r.sessions.startSearch(msg.UserID)
	return r.send(ctx, msg.UserID, prompt, SendOptions{ParseMode: ParseModeHTML})
}

// handleSearchQuery consumes the message following the search prompt.
// /start cancels the pending search; either way the role menu is restored.
func (r *Router) handleSearchQuery(ctx context.Context, msg Message) error {
	kb := keyboardFor(r.auth.RoleOf(msg.UserID))
	if msg.Text == "/start" {
		r.sessions.end(msg.UserID)
		return r.send(ctx, msg.UserID, "Поиск отменён.", SendOptions{Keyboard: kb})
	}
	if msg.Text == "" {
		return r.send(ctx, msg.UserID, "Введите непустой запрос", SendOptions{})
	}
	r.sessions.end(msg.UserID)
	return r.runSearch(ctx, msg, msg.Text, kb)
}

// runSearch executes one query and renders the results in chunks. Zero
// results is a valid outcome, not an error; store failures are logged and
// replaced by a generic message. kb, when non-nil, is attached to the last
// outbound message.
func (r *Router) runSearch(ctx context.Context, msg Message, query string, kb [][]string) error {
	persons, err := r.store.Search(ctx, query, r.searchLimit)
	if err != nil {
		obs.StoreError()
		r.log.Error("search failed", zap.Error(err), zap.Int64("user_id", msg.UserID))
		r.audit.Record(ctx, msg.UserID, msg.Username, person.ActionSearchError,
			fmt.Sprintf("Ошибка поиска по запросу: %s", query))
		return r.send(ctx, msg.UserID, searchFailed, SendOptions{ParseMode: ParseModeHTML, Keyboard: kb})
	}

	if len(persons) == 0 {
		r.audit.Record(ctx, msg.UserID, msg.Username, person.ActionSearchNoResults,
			fmt.Sprintf("Ничего не найдено по запросу: %s", query))
		return r.send(ctx, msg.UserID, searchNothingFound, SendOptions{ParseMode: ParseModeHTML, Keyboard: kb})
	}

	r.audit.Record(ctx, msg.UserID, msg.Username, person.ActionSearchSuccess,
		fmt.Sprintf("Найдено %d результатов по запросу: %s", len(persons), query))

	blocks := make([]string, 0, len(persons))
	for _, p := range persons {
		blocks = append(blocks, FormatRecord(p))
	}
	header := fmt.Sprintf("🔍 <b>Найдено результатов: %d</b>", len(persons))
	chunks := chunkBlocks(header, blocks)
	for i, chunk := range chunks {
		opts := SendOptions{ParseMode: ParseModeHTML}
		if i == len(chunks)-1 {
			opts.Keyboard = kb
		}
		if err := r.send(ctx, msg.UserID, chunk, opts); err != nil {
			return err
		}
	}
	return nil
}
