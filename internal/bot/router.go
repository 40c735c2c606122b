// Package bot is the conversational core: it routes inbound chat messages to
// authorization, search, the add wizard and the admin log view, and renders
// replies for the transport. One message per user is handled at a time; the
// authorization table and the session map are the only shared state.
package bot

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"kartoteka.org/internal/audit"
	"kartoteka.org/internal/auth"
	"kartoteka.org/internal/ids"
	"kartoteka.org/internal/obs"
	"kartoteka.org/internal/person"
)

const (
	accessDenied = "Доступ запрещен! Сначала введите код доступа через /start"
	logsDenied   = "🚫 Доступ запрещен! Эта команда доступна только администраторам."
	codePrompt   = "Для доступа к боту требуется код авторизации.\n\nВведите код доступа:"
	codeRetry    = "Неверный код доступа. Попробуйте еще раз:"
	codeThrottle = "Слишком много попыток. Подождите немного и попробуйте снова."

	userWelcome = "🤖 Добро пожаловать в бот для работы с базой данных!\n\n" +
		"Выберите действие с помощью кнопок ниже:"
	adminWelcome = "👑 Добро пожаловать, администратор!\n\n" +
		"🤖 Бот для работы с базой данных\n" +
		"🔧 У вас есть доступ ко всем функциям, включая логи\n\n" +
		"Выберите действие с помощью кнопок ниже:"
	userAuthorized  = "✅ Код доступа принят! Добро пожаловать!\n\n" + userWelcome
	adminAuthorized = "👑 Код администратора принят! Добро пожаловать!\n\n" +
		"🤖 Бот для работы с базой данных\n" +
		"🔧 У вас есть доступ ко всем функциям, включая логи\n\n" +
		"Выберите действие с помощью кнопок ниже:"

	infoText = "📚 Документация по боту:\n\n" +
		"Бот ведёт базу персональных записей: поиск по всем полям и пошаговое добавление.\n" +
		"Список команд — по кнопке «📋 Список команд»."

	commandsText = `📋 Доступные команды:

🔍 Поиск - найти запись по имени, телефону, номеру авто, адресу или паспорту
➕ Добавить - добавить новую запись (пошаговый ввод)
📚 Документация - показать документацию
📋 Список команд - показать все команды

Команды:
• Для поиска: /find <ФИО, телефон, номер авто, адрес или паспорт> — или напишите просто поисковый запрос
• Для добавления: /add или кнопка "➕ Добавить" - бот проведет вас через пошаговый ввод данных
• Информация о боте: /info

📝 Процесс добавления записи:
1. ФИО (обязательно)
2. Телефон (обязательно, 11 цифр)
3. Дата рождения (обязательно, формат YYYY-MM-DD)
4. Номер автомобиля (опционально, можно пропустить)
5. Адрес (опционально, можно пропустить)
6. Паспортные данные (опционально, можно пропустить)

В любой момент можно отменить добавление, нажав кнопку "❌ Отмена".`

	unknownCommandText = "Неизвестная команда. Нажмите «📋 Список команд» или /start."
)

const failedAuthLogLimit = 10

// Router owns the per-user session map and dispatches every inbound message.
// Construct once at process start; no ambient globals.
type Router struct {
	transport   Transport
	store       person.Store
	auth        *auth.Manager
	audit       *audit.Recorder
	sessions    *sessions
	log         *zap.Logger
	searchLimit int
}

// Config wires a Router.
type Config struct {
	Transport   Transport
	Store       person.Store
	Auth        *auth.Manager
	Audit       *audit.Recorder
	Logger      *zap.Logger
	SearchLimit int
}

func New(cfg Config) *Router {
	if cfg.Logger == nil {
		cfg.Logger = obs.Logger()
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = person.DefaultSearchLimit
	}
	return &Router{
		transport:   cfg.Transport,
		store:       cfg.Store,
		auth:        cfg.Auth,
		audit:       cfg.Audit,
		sessions:    newSessions(),
		log:         cfg.Logger,
		searchLimit: cfg.SearchLimit,
	}
}

// HandleMessage processes one inbound message to completion. It never
// returns an error to the transport: failures are logged and counted, and
// the process-wide state stays intact.
func (r *Router) HandleMessage(ctx context.Context, msg Message) {
	ctx = audit.WithUpdateID(ctx, ids.New())
	done := obs.UpdateStarted()

	msg.Text = strings.TrimSpace(msg.Text)
	action, err := r.route(ctx, msg)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		r.log.Error("handle message failed",
			zap.Error(err),
			zap.String("action", action),
			zap.Int64("user_id", msg.UserID),
			zap.String("update_id", audit.UpdateIDFromContext(ctx)))
	}
	done(action, outcome)
}

func (r *Router) route(ctx context.Context, msg Message) (string, error) {
	if sess, ok := r.sessions.get(msg.UserID); ok {
		if sess.mode == modeSearch {
			return "search", r.handleSearchQuery(ctx, msg)
		}
		return "wizard", r.handleWizard(ctx, msg, sess)
	}
	if !r.auth.IsAuthorized(msg.UserID) {
		return r.routeUnauthorized(ctx, msg)
	}
	return r.routeAuthorized(ctx, msg)
}

// routeUnauthorized: /start prompts for the code, other commands are denied,
// and any free text is an access-code attempt.
func (r *Router) routeUnauthorized(ctx context.Context, msg Message) (string, error) {
	switch {
	case msg.Text == "/start":
		r.audit.Record(ctx, msg.UserID, msg.Username, person.ActionStartCommand, "Попытка входа без авторизации")
		return "start", r.send(ctx, msg.UserID, codePrompt, SendOptions{})

	case strings.HasPrefix(msg.Text, "/"):
		if tag, details := deniedCommandTag(msg.Text); tag != "" {
			r.audit.Record(ctx, msg.UserID, msg.Username, tag, details)
		}
		return "denied", r.send(ctx, msg.UserID, accessDenied, SendOptions{})

	default:
		return "auth", r.handleAccessCode(ctx, msg)
	}
}

// deniedCommandTag maps a gated command attempted without authorization to
// its audit tag. Only the tag and a short note are logged.
func deniedCommandTag(text string) (string, string) {
	switch strings.Fields(text)[0] {
	case "/add":
		return person.ActionAddCommand, "Попытка добавления без авторизации"
	case "/find":
		return person.ActionFindCommand, "Попытка поиска без авторизации"
	case "/logs":
		return person.ActionLogsCommand, "Попытка просмотра логов без авторизации"
	default:
		return "", ""
	}
}

func (r *Router) handleAccessCode(ctx context.Context, msg Message) error {
	if !r.auth.AllowAttempt(msg.UserID) {
		return r.send(ctx, msg.UserID, codeThrottle, SendOptions{})
	}

	granted, role := r.auth.Authorize(msg.UserID, msg.Username, msg.Text)
	if !granted {
		// Same human retrying from a new identifier is best-effort
		// deduplicated by username.
		if !r.auth.KnownUsername(msg.Username) {
			r.audit.Record(ctx, msg.UserID, msg.Username, person.ActionAuthFailed,
				fmt.Sprintf("Неверный код: %s", msg.Text))
		}
		return r.send(ctx, msg.UserID, codeRetry, SendOptions{})
	}

	if role == auth.RoleAdmin {
		r.audit.Record(ctx, msg.UserID, msg.Username, person.ActionAuthSuccess, "Успешная авторизация администратора")
		return r.send(ctx, msg.UserID, adminAuthorized, SendOptions{Keyboard: adminKeyboard()})
	}
	r.audit.Record(ctx, msg.UserID, msg.Username, person.ActionAuthSuccess, "Успешная авторизация пользователя")
	return r.send(ctx, msg.UserID, userAuthorized, SendOptions{Keyboard: mainKeyboard()})
}

func (r *Router) routeAuthorized(ctx context.Context, msg Message) (string, error) {
	switch {
	case msg.Text == "/start":
		return "start", r.handleStart(ctx, msg)

	case msg.Text == "/info" || msg.Text == ButtonDocs:
		return "info", r.send(ctx, msg.UserID, infoText, SendOptions{})

	case msg.Text == ButtonCommands:
		return "commands", r.send(ctx, msg.UserID, commandsText, SendOptions{})

	case msg.Text == "/add":
		return "add", r.beginAdd(ctx, msg, "Начало пошагового добавления записи через команду")

	case msg.Text == ButtonAdd:
		return "add", r.beginAdd(ctx, msg, "Начало пошагового добавления записи")

	case msg.Text == ButtonSearch:
		return "search", r.beginSearch(ctx, msg, searchPrompt)

	case msg.Text == "/find" || strings.HasPrefix(msg.Text, "/find "):
		return "find", r.handleFind(ctx, msg)

	case msg.Text == "/logs":
		return "logs", r.handleLogs(ctx, msg, person.ActionLogsCommand)

	case msg.Text == ButtonLogs:
		return "logs", r.handleLogs(ctx, msg, person.ActionLogsButton)

	case strings.HasPrefix(msg.Text, "/"):
		r.audit.Record(ctx, msg.UserID, msg.Username, person.ActionUnknownCommand, msg.Text)
		return "unknown", r.send(ctx, msg.UserID, unknownCommandText, SendOptions{})

	default:
		// Free text from an authorized user is a search query.
		r.audit.Record(ctx, msg.UserID, msg.Username, person.ActionTextSearch,
			fmt.Sprintf("Текстовый поиск: %s", msg.Text))
		return "search", r.runSearch(ctx, msg, msg.Text, nil)
	}
}

func (r *Router) handleStart(ctx context.Context, msg Message) error {
	if r.auth.IsAdmin(msg.UserID) {
		r.audit.Record(ctx, msg.UserID, msg.Username, person.ActionStartCommand, "Вход администратора")
		return r.send(ctx, msg.UserID, adminWelcome, SendOptions{Keyboard: adminKeyboard()})
	}
	r.audit.Record(ctx, msg.UserID, msg.Username, person.ActionStartCommand, "Вход обычного пользователя")
	return r.send(ctx, msg.UserID, userWelcome, SendOptions{Keyboard: mainKeyboard()})
}

func (r *Router) handleFind(ctx context.Context, msg Message) error {
	query := strings.TrimSpace(strings.TrimPrefix(msg.Text, "/find"))
	if query == "" {
		r.audit.Record(ctx, msg.UserID, msg.Username, person.ActionFindCommand, "Пустой запрос")
		return r.beginSearch(ctx, msg, "Используй: /find <запрос> или введите запрос ниже:")
	}
	return r.runSearch(ctx, msg, query, nil)
}

func (r *Router) handleLogs(ctx context.Context, msg Message, tag string) error {
	if !r.auth.IsAdmin(msg.UserID) {
		r.audit.Record(ctx, msg.UserID, msg.Username, tag, "Попытка просмотра логов без прав администратора")
		return r.send(ctx, msg.UserID, logsDenied, SendOptions{})
	}
	r.audit.Record(ctx, msg.UserID, msg.Username, tag, "Просмотр логов неудачных авторизаций (админ)")

	entries, err := r.store.FailedAuthLogs(ctx, failedAuthLogLimit)
	if err != nil {
		obs.StoreError()
		r.log.Error("read failed-auth logs", zap.Error(err), zap.Int64("user_id", msg.UserID))
		return r.send(ctx, msg.UserID, "❌ Не удалось прочитать логи. Попробуйте позже.", SendOptions{})
	}
	if len(entries) == 0 {
		return r.send(ctx, msg.UserID, "🔒 Неудачных попыток авторизации не найдено", SendOptions{})
	}

	blocks := make([]string, 0, len(entries)+1)
	for _, e := range entries {
		blocks = append(blocks, formatLogEntry(e))
	}
	if st, err := r.store.Stats(ctx); err == nil {
		blocks = append(blocks, fmt.Sprintf("📈 Записей: %d · логов: %d · неудачных входов: %d",
			st.TotalPersons, st.TotalLogs, st.FailedAuths))
	}
	for _, chunk := range chunkBlocks("🚨 Неудачные попытки авторизации:", blocks) {
		if err := r.send(ctx, msg.UserID, chunk, SendOptions{}); err != nil {
			return err
		}
	}
	return nil
}

// send forwards to the transport; delivery is never acknowledged back into
// the flow, so failures only get logged.
func (r *Router) send(ctx context.Context, userID int64, text string, opts SendOptions) error {
	if err := r.transport.Send(ctx, userID, text, opts); err != nil {
		return fmt.Errorf("send to %d: %w", userID, err)
	}
	return nil
}
