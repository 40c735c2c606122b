package bot

import "kartoteka.org/internal/auth"

// Button labels routed as bare text.
const (
	ButtonSearch   = "🔍 Поиск"
	ButtonAdd      = "➕ Добавить"
	ButtonLogs     = "📊 Логи"
	ButtonCommands = "📋 Список команд"
	ButtonDocs     = "📚 Документация"
	ButtonCancel   = "❌ Отмена"
)

func mainKeyboard() [][]string {
	return [][]string{
		{ButtonSearch, ButtonAdd},
		{ButtonDocs, ButtonCommands},
	}
}

func adminKeyboard() [][]string {
	return [][]string{
		{ButtonSearch, ButtonAdd},
		{ButtonLogs, ButtonCommands},
	}
}

func cancelKeyboard() [][]string {
	return [][]string{{ButtonCancel}}
}

// keyboardFor returns the role-appropriate main menu.
func keyboardFor(role auth.Role) [][]string {
	if role == auth.RoleAdmin {
		return adminKeyboard()
	}
	return mainKeyboard()
}
