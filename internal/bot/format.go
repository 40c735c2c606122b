package bot

import (
	"fmt"
	"strings"

	"kartoteka.org/internal/person"
)

// maxMessageLen leaves a safety margin below the transport's hard 4096-char
// limit. Chunk boundaries always fall between whole records.
const maxMessageLen = 4000

// FormatRecord renders one card as a text block.
func FormatRecord(p person.Person) string {
	var b strings.Builder
	fmt.Fprintf(&b, "👤 ФИО: %s\n", p.FIO)
	fmt.Fprintf(&b, "📞 Телефон: %s\n", p.Phone)
	fmt.Fprintf(&b, "📅 Дата рождения: %s\n", p.Birth)
	if p.CarNumber != "" {
		fmt.Fprintf(&b, "🚗 Номер авто: %s\n", p.CarNumber)
	}
	if p.Address != "" {
		fmt.Fprintf(&b, "🏠 Адрес: %s\n", p.Address)
	}
	if p.Passport != "" {
		fmt.Fprintf(&b, "📄 Паспорт: %s\n", p.Passport)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatLogEntry(e person.LogEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🕐 %s\n", e.Timestamp.Format("2006-01-02 15:04:05"))
	username := e.Username
	if username == "" {
		username = "Unknown"
	}
	fmt.Fprintf(&b, "👤 %s (ID: %d)\n", username, e.UserID)
	fmt.Fprintf(&b, "❌ %s\n", e.Action)
	if e.Details != "" {
		fmt.Fprintf(&b, "📝 %s\n", e.Details)
	}
	b.WriteString(strings.Repeat("─", 30))
	return b.String()
}

// chunkBlocks joins header and blocks with blank lines into messages of at
// most maxMessageLen characters, never splitting a block.
func chunkBlocks(header string, blocks []string) []string {
	var (
		chunks []string
		cur    strings.Builder
	)
	cur.WriteString(header)
	for _, block := range blocks {
		if cur.Len() > 0 && cur.Len()+2+len(block) > maxMessageLen {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(block)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}
