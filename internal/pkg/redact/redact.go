// redact — маскирование чувствительных значений перед логированием.
package redact

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Email оставляет первые два символа локальной части и домен.
func Email(s string) string {
	parts := strings.Split(s, "@")
	if len(parts) != 2 {
		return "***"
	}

	local, domain := parts[0], parts[1]
	if len(local) > 2 {
		local = local[:2] + "***"
	} else {
		local = "***"
	}

	return local + "@" + domain
}

// Token — токен целиком никогда не логируется.
func Token() string { return "[REDACTED_TOKEN]" }

// Password — пароль никогда не логируется.
func Password() string { return "[REDACTED_PASSWORD]" }

// Fingerprint — короткий отпечаток токена (8 hex sha256) для корреляции
// записей лога без раскрытия значения. Пустой токен -> "-".
func Fingerprint(tok string) string {
	if tok == "" {
		return "-"
	}

	sum := sha256.Sum256([]byte(tok))
	return hex.EncodeToString(sum[:4])
}
