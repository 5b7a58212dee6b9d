package repository

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// LikePattern превращает строку поиска в шаблон "%...%" с экранированными спецсимволами.
// Экранирующий символ: обратная косая черта.
func LikePattern(search string) string {
	return "%" + likeEscaper.Replace(search) + "%"
}
