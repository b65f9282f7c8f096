package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           storyd API
// @version         1.0
// @description     HTTP API for multi-backend story text generation.
//
// @contact.name   storyd maintainers
// @contact.url    https://github.com/your-org/storyd
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
