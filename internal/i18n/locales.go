package i18n

var Locales = map[string]map[string]string{
	"ru": {
		"help": "Привет! Я бот для управления задачами.\n" +
			"Чтобы добавить задачу:\n" +
			"— напишите любой текст, или\n" +
			"— используйте команду /add <текст>\n" +
			"/list — показать задачи\n" +
			"/done <номер> — отметить как выполненную\n" +
			"/delete <номер> — удалить задачу\n" +
			"/export — экспортировать задачи в CSV\n" +
			"/clear_all — удалить все задачи\n" +
			"/done_all — отметить все задачи как выполненные\n" +
			"/language — выбрать язык\n" +
			"/cancel — отменить добавление задачи",
		"unknown_command": "Неизвестная команда. Используйте:\n" +
			"/start — справка\n" +
			"/list — показать задачи\n" +
			"/done <номер> — отметить выполненную\n" +
			"/delete <номер> — удалить задачу\n" +
			"/export — экспорт в CSV",
		"add_usage":         "[!] Укажите текст задачи после /add",
		"empty_task":        "Текст задачи не может быть пустым!",
		"task_added":        "[✳️] Задача №%d добавлена!\nЗадача: %s",
		"add_failed":        "Не удалось добавить задачу. Попробуйте ещё раз.",
		"no_tasks":          "У вас нет задач.",
		"list_error":        "Произошла ошибка при загрузке задач. Попробуйте позже.",
		"done_usage":        "Используйте: /done <номер_задачи>",
		"delete_usage":      "Используйте: /delete <номер_задачи>",
		"not_a_number":      "Номер задачи должен быть числом!",
		"task_done":         "[✅] Задача №%d отмечена как выполненная!",
		"done_not_found":    "Задача не найдена или уже выполнена.",
		"task_deleted":      "[❌] Задача №%d удалена!",
		"delete_not_found":  "Задача не найдена.",
		"generic_error":     "Произошла ошибка. Попробуйте снова.",
		"cleared":           "[❌] Удалено %d задач!",
		"nothing_to_clear":  "У вас нет задач для удаления.",
		"all_done":          "[✅] Отмечено как выполненные: %d задач!",
		"nothing_to_done":   "Нет задач для отметки как выполненных.",
		"export_empty":      "У вас нет задач для экспорта.",
		"export_caption":    "Ваши задачи (CSV)",
		"export_error":      "Произошла ошибка при экспорте. Попробуйте позже.",
		"ask_surname":       "Пожалуйста, укажите вашу фамилию:",
		"ask_task":          "Спасибо! Теперь напишите саму задачу.",
		"dialog_cancelled":  "Добавление задачи отменено.",
		"nothing_to_cancel": "Нечего отменять.",
		"choose_language":   "🇷🇺 Выберите язык:",
		"language_set":      "Язык выбран: Русский 🇷🇺",
		"rate_limited":      "Слишком много сообщений. Подождите немного.",
		"csv_number":        "Номер",
		"csv_status":        "Статус",
		"csv_text":          "Текст",
		"csv_created":       "Дата создания",
		"csv_done":          "Выполнено",
		"csv_pending":       "Не выполнено",
	},
	"en": {
		"help": "Hi! I am a task management bot.\n" +
			"To add a task:\n" +
			"— send any text, or\n" +
			"— use /add <text>\n" +
			"/list — show tasks\n" +
			"/done <number> — mark as done\n" +
			"/delete <number> — delete a task\n" +
			"/export — export tasks to CSV\n" +
			"/clear_all — delete all tasks\n" +
			"/done_all — mark all tasks as done\n" +
			"/language — choose language\n" +
			"/cancel — cancel adding a task",
		"unknown_command": "Unknown command. Use:\n" +
			"/start — help\n" +
			"/list — show tasks\n" +
			"/done <number> — mark as done\n" +
			"/delete <number> — delete a task\n" +
			"/export — export to CSV",
		"add_usage":         "[!] Put the task text after /add",
		"empty_task":        "Task text cannot be empty!",
		"task_added":        "[✳️] Task #%d added!\nTask: %s",
		"add_failed":        "Could not add the task. Please try again.",
		"no_tasks":          "You have no tasks.",
		"list_error":        "Could not load your tasks. Please try later.",
		"done_usage":        "Usage: /done <task_number>",
		"delete_usage":      "Usage: /delete <task_number>",
		"not_a_number":      "Task number must be a number!",
		"task_done":         "[✅] Task #%d marked as done!",
		"done_not_found":    "Task not found or already done.",
		"task_deleted":      "[❌] Task #%d deleted!",
		"delete_not_found":  "Task not found.",
		"generic_error":     "Something went wrong. Please try again.",
		"cleared":           "[❌] Deleted %d tasks!",
		"nothing_to_clear":  "You have no tasks to delete.",
		"all_done":          "[✅] Marked as done: %d tasks!",
		"nothing_to_done":   "No tasks to mark as done.",
		"export_empty":      "You have no tasks to export.",
		"export_caption":    "Your tasks (CSV)",
		"export_error":      "Export failed. Please try later.",
		"ask_surname":       "Please tell me your surname:",
		"ask_task":          "Thanks! Now write the task itself.",
		"dialog_cancelled":  "Adding the task was cancelled.",
		"nothing_to_cancel": "Nothing to cancel.",
		"choose_language":   "🇺🇸 Please choose your language:",
		"language_set":      "Language set to English 🇺🇸",
		"rate_limited":      "Too many messages. Please slow down.",
		"csv_number":        "Number",
		"csv_status":        "Status",
		"csv_text":          "Text",
		"csv_created":       "Created",
		"csv_done":          "Done",
		"csv_pending":       "Pending",
	},
}

func GetMessage(lang, key string) string {
	if texts, ok := Locales[lang]; ok {
		if msg, ok := texts[key]; ok {
			return msg
		}
	}
	// Fallback to English
	if msg, ok := Locales[LangEN][key]; ok {
		return msg
	}
	return key
}

// Supported Languages
const (
	LangEN = "en"
	LangRU = "ru"
)

func IsSupported(lang string) bool {
	_, ok := Locales[lang]
	return ok
}

// Resolve picks the first supported language among the candidates, else def.
func Resolve(def string, candidates ...string) string {
	for _, c := range candidates {
		if IsSupported(c) {
			return c
		}
	}
	if IsSupported(def) {
		return def
	}
	return LangEN
}
