// Package auth provides accounts, cookie sessions and request protection.
//
// It supports two modes:
//   - "none": catalog only, login and register are disabled and every
//     request is anonymous
//   - "local": email and password accounts with session cookies (default)
//
// # Configuration
//
//	AUTH_MODE=local
//	AUTH_SESSION_SECRET=<hex-32-bytes>   # Generated at startup if empty
//	AUTH_SESSION_LIFETIME=720h
//	AUTH_BCRYPT_COST=12
//	AUTH_MIN_PASSWORD_LENGTH=8
//	AUTH_SECURE_COOKIES=true             # HTTPS-only cookies
//
// # Usage
//
//	authService := auth.NewService(users.NewRepository(db.DB), cfg.Auth)
//	sessions, _ := auth.NewSessionManager(sqlDB, cfg.Database.Driver, cfg.Auth)
//	router.Use(sessions.LoadAndSave(), auth.NewMiddleware(authService, sessions, cfg.Auth).Handler())
//
// Session managers of the study flow authenticate through Authenticator,
// which translates the errors of this package into those of package session.
package auth
