package scheduling

// SlotTimes son los únicos horarios reservables de la clínica: mañana de
// 09:00 a 11:30 y tarde de 14:00 a 16:30, en bloques de media hora.
var SlotTimes = []string{
	"09:00", "09:30", "10:00", "10:30", "11:00", "11:30",
	"14:00", "14:30", "15:00", "15:30", "16:00", "16:30",
}

// IsSlotTime indica si t pertenece a la enumeración de horarios
func IsSlotTime(t string) bool {
	for _, s := range SlotTimes {
		if s == t {
			return true
		}
	}
	return false
}

// remainingTimes devuelve la enumeración completa menos los horarios ocupados,
// preservando el orden de SlotTimes.
func remainingTimes(occupied []string) []string {
	taken := make(map[string]bool, len(occupied))
	for _, t := range occupied {
		taken[t] = true
	}
	available := make([]string, 0, len(SlotTimes))
	for _, t := range SlotTimes {
		if !taken[t] {
			available = append(available, t)
		}
	}
	return available
}
