package tracker

// Store keys. These names are part of the persisted contract; renaming any
// of them requires a migration like the legacy one below.
const (
	keyDenialInfo         = "dreamic_notification_denial_info"
	keySettingsPromptInfo = "dreamic_notification_settings_prompt_info"
	keyHasRequested       = "dreamic_notification_has_requested"
	keyLastReminderDate   = "dreamic_notification_last_reminder_date"
	keyKeysMigrated       = "dreamic_notification_keys_migrated"
)

// Legacy flat keys from before the structured records existed. Read exactly
// once by the migrator, then deleted.
const (
	legacyKeyRequestCount     = "notification_request_count"
	legacyKeyDenialCount      = "notification_denial_count"
	legacyKeyLastRequestTime  = "notification_last_request_time"
	legacyKeyLastReminderDate = "notification_last_reminder_date"
)
