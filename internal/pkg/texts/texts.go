package texts

import (
	"fmt"
	"strings"
)

// DefaultLang is used when the user language has no catalog
const DefaultLang = "ru"

// Text keys
const (
	Welcome             = "welcome"
	Balance             = "balance"
	SendAudioVideo      = "send_audio_video"
	Canceled            = "transcription_canceled"
	UnknownCommand      = "unknown_command"
	UserBlocked         = "user_blocked_message"
	RateLimitExceeded   = "rate_limit_exceeded"
	Queued              = "queued"
	Busy                = "previous_in_progress"
	UnsupportedFormat   = "unsupported_format"
	FileTooBig          = "file_too_big"
	Processing          = "processing"
	ProcessingFailed    = "processing_failed"
	Progress            = "transcription_progress"
	AudioTooLong        = "audio_too_long"
	InvalidDuration     = "invalid_duration"
	UserNotFound        = "user_not_found_start"
	ZeroBalance         = "zero_balance"
	InsufficientBalance = "insufficient_balance"
	Complete            = "transcription_complete"
	NoTextFound         = "transcription_no_text_found"
	Error               = "transcription_error"
	FailedGeneric       = "user_transcription_failed_generic"
	RateLimitedGeneric  = "user_rate_limited_generic"
	ServerErrorGeneric  = "user_internal_server_error_generic"
	AdminAPIKeyInvalid  = "admin_api_key_invalid"
	AdminRateLimited    = "admin_rate_limited_notification"
	AdminServerError    = "admin_internal_server_error_notification"
	AdminPipelineError  = "admin_error_notification"
	ResultNotDelivered  = "result_not_delivered"
	AdminNotDelivered   = "admin_result_not_delivered"
)

var catalogs = map[string]map[string]string{
	"ru": {
		Welcome:             "Привет, %s! Ваш баланс: %d мин. Отправьте /transcribe, чтобы расшифровать файл.",
		Balance:             "Ваш баланс: %d мин.",
		SendAudioVideo:      "Отправьте аудио, видео или голосовое сообщение.",
		Canceled:            "Расшифровка отменена.",
		UnknownCommand:      "Неизвестная команда. Используйте /transcribe или /balance.",
		UserBlocked:         "Ваш аккаунт заблокирован.",
		RateLimitExceeded:   "Слишком много запросов. Подождите немного.",
		Queued:              "Файл принят, ожидайте результат.",
		Busy:                "Предыдущий файл ещё обрабатывается.",
		UnsupportedFormat:   "Неподдерживаемый формат файла.",
		FileTooBig:          "Файл слишком большой. Максимальный размер: %d МБ.",
		Processing:          "⏳ Обработка файла...",
		ProcessingFailed:    "Не удалось обработать файл.",
		Progress:            "⏳ Идёт расшифровка...",
		AudioTooLong:        "Файл слишком длинный. Максимум: %d мин, ваш файл: %d мин.",
		InvalidDuration:     "Не удалось определить длительность файла.",
		UserNotFound:        "Пользователь не найден. Отправьте /start.",
		ZeroBalance:         "%s, ваш баланс равен нулю. Пополните баланс.",
		InsufficientBalance: "Недостаточно минут: нужно %d, на балансе %d.",
		Complete:            "✅ Расшифровка готова.",
		NoTextFound:         "В файле не найдено речи.",
		Error:               "Ошибка при расшифровке. Попробуйте позже.",
		FailedGeneric:       "Не удалось выполнить расшифровку. Администратор уведомлён.",
		RateLimitedGeneric:  "Сервис перегружен. Попробуйте позже.",
		ServerErrorGeneric:  "Сервис расшифровки временно недоступен. Попробуйте позже.",
		AdminAPIKeyInvalid:  "API ключ сервиса расшифровки недействителен (код %d).",
		AdminRateLimited:    "Превышен лимит запросов к сервису расшифровки (код %d).",
		AdminServerError:    "Ошибка сервера расшифровки (код %d).",
		AdminPipelineError:  "Ошибка обработки для пользователя %d: %s",
		ResultNotDelivered:  "Расшифровка сохранена, но не удалось отправить файл. Номер задания: %s. Администратор уведомлён.",
		AdminNotDelivered:   "Не удалось отправить результат задания %s пользователю %d: %s",
	},
	"en": {
		Welcome:             "Hi, %s! Your balance: %d min. Send /transcribe to transcribe a file.",
		Balance:             "Your balance: %d min.",
		SendAudioVideo:      "Send an audio, video or voice message.",
		Canceled:            "Transcription canceled.",
		UnknownCommand:      "Unknown command. Use /transcribe or /balance.",
		UserBlocked:         "Your account is blocked.",
		RateLimitExceeded:   "Too many requests. Please wait a bit.",
		Queued:              "File accepted, wait for the result.",
		Busy:                "Previous file is still being processed.",
		UnsupportedFormat:   "Unsupported file format.",
		FileTooBig:          "File is too big. Max size: %d MB.",
		Processing:          "⏳ Processing file...",
		ProcessingFailed:    "Could not process the file.",
		Progress:            "⏳ Transcribing...",
		AudioTooLong:        "File is too long. Max: %d min, your file: %d min.",
		InvalidDuration:     "Could not detect file duration.",
		UserNotFound:        "User not found. Send /start.",
		ZeroBalance:         "%s, your balance is zero. Please top up.",
		InsufficientBalance: "Not enough minutes: need %d, balance %d.",
		Complete:            "✅ Transcription is ready.",
		NoTextFound:         "No speech found in the file.",
		Error:               "Transcription error. Please try later.",
		FailedGeneric:       "Transcription failed. Administrator is notified.",
		RateLimitedGeneric:  "Service is busy. Please try later.",
		ServerErrorGeneric:  "Transcription service is temporarily unavailable. Please try later.",
		AdminAPIKeyInvalid:  "Transcription API key is invalid (code %d).",
		AdminRateLimited:    "Transcription API rate limit reached (code %d).",
		AdminServerError:    "Transcription server error (code %d).",
		AdminPipelineError:  "Pipeline error for user %d: %s",
		ResultNotDelivered:  "Transcription is saved but the file could not be sent. Job ID: %s. Administrator is notified.",
		AdminNotDelivered:   "Can't deliver result of job %s to user %d: %s",
	},
}

// Get returns localized text formatted with args
func Get(lang, key string, args ...interface{}) string {
	t, ok := lookup(lang, key)
	if !ok {
		return key
	}
	if len(args) == 0 {
		return t
	}
	return fmt.Sprintf(t, args...)
}

// Lang normalizes telegram language code to a supported one
func Lang(code string) string {
	code = strings.ToLower(code)
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	if _, ok := catalogs[code]; ok {
		return code
	}
	return DefaultLang
}

func lookup(lang, key string) (string, bool) {
	if c, ok := catalogs[Lang(lang)]; ok {
		if t, ok := c[key]; ok {
			return t, true
		}
	}
	t, ok := catalogs[DefaultLang][key]
	return t, ok
}
