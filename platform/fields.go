package platform

import "strconv"

// The bridge returns records whose field names vary between manager API
// builds (e.g. a position ticket may arrive as "position", "Position",
// "ticket" or "Ticket"; swap may arrive as "storage"). These accessors scan
// an ordered candidate list and fall back to a typed default so the rest of
// the engine only ever sees the normalized shapes in interface.go.

func pickFloat(m map[string]interface{}, def float64, keys ...string) float64 {
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case float64:
			return t
		case int:
			return float64(t)
		case int64:
			return float64(t)
		case string:
			if f, err := strconv.ParseFloat(t, 64); err == nil {
				return f
			}
		}
	}
	return def
}

func pickInt(m map[string]interface{}, def int64, keys ...string) int64 {
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case float64:
			return int64(t)
		case int:
			return int64(t)
		case int64:
			return t
		case string:
			if n, err := strconv.ParseInt(t, 10, 64); err == nil {
				return n
			}
		}
	}
	return def
}

func pickString(m map[string]interface{}, def string, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return def
}

// normalizeAccount maps a raw bridge account record to the engine shape.
func normalizeAccount(m map[string]interface{}) *Account {
	return &Account{
		Login:   pickInt(m, 0, "login", "Login"),
		Group:   pickString(m, "", "group", "Group"),
		Equity:  pickFloat(m, 0, "equity", "Equity"),
		Balance: pickFloat(m, 0, "balance", "Balance"),
		Enabled: pickInt(m, 1, "enable", "Enable", "enabled") != 0,
		Rights:  int(pickInt(m, 0, "rights", "Rights")),
	}
}

// normalizePosition maps a raw bridge position record to the engine shape.
func normalizePosition(m map[string]interface{}) Position {
	return Position{
		Ticket:     pickInt(m, 0, "position", "Position", "ticket", "Ticket"),
		Symbol:     pickString(m, "", "symbol", "Symbol"),
		Volume:     pickFloat(m, 0, "volume", "Volume"),
		Profit:     pickFloat(m, 0, "profit", "Profit"),
		Swap:       pickFloat(m, 0, "swap", "Swap", "storage", "Storage"),
		Commission: pickFloat(m, 0, "commission", "Commission"),
	}
}

// normalizeOrder maps a raw bridge order record to the engine shape.
func normalizeOrder(m map[string]interface{}) Order {
	return Order{
		Ticket: pickInt(m, 0, "order", "Order", "ticket", "Ticket"),
	}
}
