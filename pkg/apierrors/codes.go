package apierrors

// Code - стабильный машиночитаемый идентификатор ошибки.
type Code string

// Коды ошибок, сгруппированные по категориям.
const (
	// Аутентификация.
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeTokenExpired Code = "TOKEN_EXPIRED"

	// Валидация.
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeInvalidInput Code = "INVALID_INPUT"

	// Ресурсы.
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeAlreadyExists Code = "ALREADY_EXISTS"

	// Сеть.
	CodeNetwork            Code = "NETWORK_ERROR"
	CodeTimeout            Code = "TIMEOUT"
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"

	// Сервер.
	CodeInternal Code = "INTERNAL_SERVER_ERROR"
	CodeDatabase Code = "DATABASE_ERROR"

	// Клиент.
	CodeBadRequest Code = "BAD_REQUEST"
	CodeRateLimit  Code = "RATE_LIMIT_EXCEEDED"

	// Общий fallback.
	CodeUnknown Code = "UNKNOWN_ERROR"
)

// retryableByCode задает для каждого кода ровно одно значение retryable
// по умолчанию.
var retryableByCode = map[Code]bool{
	CodeUnauthorized:       false,
	CodeForbidden:          false,
	CodeTokenExpired:       false,
	CodeValidation:         false,
	CodeInvalidInput:       false,
	CodeNotFound:           false,
	CodeConflict:           false,
	CodeAlreadyExists:      false,
	CodeNetwork:            true,
	CodeTimeout:            true,
	CodeServiceUnavailable: true,
	CodeInternal:           true,
	CodeDatabase:           false,
	CodeBadRequest:         false,
	CodeRateLimit:          true,
	CodeUnknown:            false,
}

// statusToCode - фиксированная таблица соответствия HTTP статуса коду ошибки.
var statusToCode = map[int]Code{
	400: CodeBadRequest,
	401: CodeUnauthorized,
	403: CodeForbidden,
	404: CodeNotFound,
	408: CodeTimeout,
	409: CodeConflict,
	422: CodeValidation,
	429: CodeRateLimit,
	500: CodeInternal,
	502: CodeServiceUnavailable,
	503: CodeServiceUnavailable,
	504: CodeTimeout,
}

// CodeForStatus возвращает код ошибки для HTTP статуса. Статусы 5xx вне
// таблицы считаются внутренней ошибкой сервера, остальные неизвестные
// статусы дают CodeUnknown.
func CodeForStatus(status int) Code {
	if code, ok := statusToCode[status]; ok {
		return code
	}
	if status >= 500 && status <= 599 {
		return CodeInternal
	}
	return CodeUnknown
}

// RetryableForCode возвращает retryable по умолчанию для кода.
func RetryableForCode(code Code) bool {
	return retryableByCode[code]
}

// userMessages - фиксированная таблица сообщений для пользователя.
var userMessages = map[Code]string{
	CodeUnauthorized:       "You are not signed in or your session has ended.",
	CodeForbidden:          "You do not have permission to perform this action.",
	CodeTokenExpired:       "Your session has expired. Please sign in again.",
	CodeValidation:         "Some of the submitted data is invalid.",
	CodeInvalidInput:       "Some of the submitted data is invalid.",
	CodeNotFound:           "The requested resource was not found.",
	CodeConflict:           "The request conflicts with the current state.",
	CodeAlreadyExists:      "The resource already exists.",
	CodeNetwork:            "A network error occurred. Check your connection.",
	CodeTimeout:            "The request timed out. Please try again.",
	CodeServiceUnavailable: "The service is temporarily unavailable.",
	CodeInternal:           "An internal server error occurred.",
	CodeDatabase:           "An internal server error occurred.",
	CodeBadRequest:         "The request could not be processed.",
	CodeRateLimit:          "Too many requests. Please slow down.",
}
