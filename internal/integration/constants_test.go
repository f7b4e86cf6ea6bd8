package integration_test

const (
	TestUserId       = 1
	TestUserEmail    = "test@example.com"
	TestUserPassword = "Test123!@#"

	TestStaffId    = 2
	TestStaffEmail = "clerk@example.com"

	TestShowtimeId = 1

	testWebhookSecret = "whsec_integration_secret"
)
