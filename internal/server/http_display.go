package server

import "fmt"

// displayServerInfo prints the operational summary shown at startup:
// endpoints, authentication, request limits and throttling.
func (s *Server) displayServerInfo() {
	fmt.Println("Endpoints:")
	fmt.Println("  GET  /health   - Health check")
	fmt.Println("  GET  /stats    - Server statistics")
	fmt.Println("  POST /analyze  - Analyze resume upload (requires API key)")

	if n := len(s.APIKeys); n > 0 {
		fmt.Printf("API authentication: ENABLED (%d keys configured)\n", n)
		fmt.Println("Send the key in an 'X-API-Key' header or as a Bearer token")
	} else {
		fmt.Println("API authentication: DISABLED, no API keys configured")
		fmt.Println("WARNING: /analyze is publicly accessible")
	}

	if s.MaxRequestBytes > 0 {
		fmt.Printf("Request size limit: %d bytes (%.1f MB)\n",
			s.MaxRequestBytes, float64(s.MaxRequestBytes)/(1024*1024))
	} else {
		fmt.Println("Request size limit: DISABLED, uploads are unbounded")
	}

	if rl := s.RateLimit; rl != nil && rl.Enabled {
		fmt.Printf("Rate limiting: ENABLED (%d requests/min, burst %d)\n", rl.RequestsPerMin, rl.BurstCapacity)
		if rl.ByAPIKey {
			fmt.Println("  - per API key")
		}
		if rl.ByIP {
			fmt.Println("  - per client IP")
		}
	} else {
		fmt.Println("Rate limiting: DISABLED, no request throttling")
	}
}
