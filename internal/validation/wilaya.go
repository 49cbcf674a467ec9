// Package validation содержит функции валидации входных данных.
package validation

import (
	"strconv"
	"strings"
)

// wilayas — 58 вилай Алжира в порядке официальных кодов.
var wilayas = [...]string{
	"Adrar", "Chlef", "Laghouat", "Oum El Bouaghi", "Batna", "Bejaia", "Biskra", "Bechar",
	"Blida", "Bouira", "Tamanrasset", "Tebessa", "Tlemcen", "Tiaret", "Tizi Ouzou", "Alger",
	"Djelfa", "Jijel", "Setif", "Saida", "Skikda", "Sidi Bel Abbes", "Annaba", "Guelma",
	"Constantine", "Medea", "Mostaganem", "M'Sila", "Mascara", "Ouargla", "Oran", "El Bayadh",
	"Illizi", "Bordj Bou Arreridj", "Boumerdes", "El Tarf", "Tindouf", "Tissemsilt", "El Oued",
	"Khenchela", "Souk Ahras", "Tipaza", "Mila", "Ain Defla", "Naama", "Ain Temouchent",
	"Ghardaia", "Relizane", "Timimoun", "Bordj Badji Mokhtar", "Ouled Djellal", "Beni Abbes",
	"In Salah", "In Guezzam", "Touggourt", "Djanet", "El M'Ghair", "El Meniaa",
}

var wilayaByKey = func() map[string]string {
	m := make(map[string]string, len(wilayas))
	for _, w := range wilayas {
		m[strings.ToLower(w)] = w
	}
	return m
}()

// NormalizeWilaya приводит название или двузначный код вилайи к каноническому названию.
func NormalizeWilaya(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}

	if code, err := strconv.Atoi(value); err == nil {
		if code < 1 || code > len(wilayas) {
			return "", false
		}
		return wilayas[code-1], true
	}

	w, ok := wilayaByKey[strings.ToLower(value)]
	return w, ok
}

// IsValidWilaya проверяет, что значение — известная вилайя.
func IsValidWilaya(value string) bool {
	_, ok := NormalizeWilaya(value)
	return ok
}

// Wilayas возвращает список всех вилай.
func Wilayas() []string {
	out := make([]string, len(wilayas))
	copy(out, wilayas[:])
	return out
}
