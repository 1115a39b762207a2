package bypass

import (
	"net/http"
	"testing"
)

func TestDetectGoogle(t *testing.T) {
	tests := []struct {
		name string
		res  *Response
		want bool
	}{
		{"results page", &Response{URL: "https://www.google.com/search?q=go", StatusCode: 200, Body: []byte("<div id=search>")}, false},
		{"sorry redirect", &Response{URL: "https://www.google.com/sorry/index?continue=x", StatusCode: 200}, true},
		{"too many requests", &Response{StatusCode: http.StatusTooManyRequests}, true},
		{"unusual traffic body", &Response{StatusCode: 200, Body: []byte("Our systems have detected unusual traffic from your computer")}, true},
		{"captcha form", &Response{StatusCode: 200, Body: []byte(`<form id="captcha-form" action="index">`)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detected, src := detectGoogle(tt.res)
			if detected != tt.want {
				t.Fatalf("detectGoogle() = %v, want %v", detected, tt.want)
			}
			if detected && src != "Google" {
				t.Errorf("expected source Google, got %q", src)
			}
		})
	}
}

func TestDetectCloudflare(t *testing.T) {
	res := &Response{StatusCode: 200, Headers: http.Header{"Server": {"nginx"}}, Body: []byte("OK")}
	if detected, _ := detectCloudflare(res); detected {
		t.Errorf("expected not detected")
	}

	res = &Response{StatusCode: 403, Headers: http.Header{"Server": {"cloudflare"}}, Body: []byte("Access Denied")}
	if detected, src := detectCloudflare(res); !detected || src != "Cloudflare" {
		t.Errorf("expected Cloudflare detection by header")
	}

	res = &Response{StatusCode: 503, Headers: http.Header{}, Body: []byte("<html>... cf-turnstile ...</html>")}
	if detected, src := detectCloudflare(res); !detected || src != "Cloudflare" {
		t.Errorf("expected Cloudflare detection by body")
	}
}

func TestDetectAkamai(t *testing.T) {
	res := &Response{StatusCode: 403, Headers: http.Header{"Server": {"AkamaiGHost"}}}
	if detected, src := detectAkamai(res); !detected || src != "Akamai" {
		t.Errorf("expected Akamai detection by header")
	}

	res = &Response{StatusCode: 403, Headers: http.Header{}, Body: []byte("Access Denied... Reference #123.456")}
	if detected, src := detectAkamai(res); !detected || src != "Akamai" {
		t.Errorf("expected Akamai detection by body")
	}
}

func TestDetectDataDome(t *testing.T) {
	// Deliberately non-canonical key
	res := &Response{StatusCode: 403, Headers: http.Header{"X-DataDome": {"1"}}}
	if detected, src := detectDataDome(res); !detected || src != "DataDome" {
		t.Errorf("expected DataDome detection by header")
	}

	res = &Response{StatusCode: 403, Headers: http.Header{}, Body: []byte("script src='https://geo.captcha-delivery.com/...'")}
	if detected, src := detectDataDome(res); !detected || src != "DataDome" {
		t.Errorf("expected DataDome detection by body")
	}
}

func TestDetectPerimeterX(t *testing.T) {
	res := &Response{StatusCode: 403, Headers: http.Header{"X-Px-Captcha": {"required"}}}
	if detected, src := detectPerimeterX(res); !detected || src != "PerimeterX" {
		t.Errorf("expected PerimeterX detection by header")
	}

	res = &Response{StatusCode: 403, Headers: http.Header{}, Body: []byte("window._pxBlock = true;")}
	if detected, src := detectPerimeterX(res); !detected || src != "PerimeterX" {
		t.Errorf("expected PerimeterX detection by body")
	}
}

func TestAnalyze(t *testing.T) {
	detectors := DefaultDetectors()

	detected, src := Analyze(&Response{StatusCode: 403, Headers: http.Header{"X-DataDome": {"1"}}}, detectors)
	if !detected || src != "DataDome" {
		t.Errorf("expected DataDome detection, got %v %q", detected, src)
	}

	detected, src = Analyze(&Response{StatusCode: 200, Headers: http.Header{}, Body: []byte("hello")}, detectors)
	if detected || src != "" {
		t.Errorf("expected clean page to pass, got %v %q", detected, src)
	}

	if detected, _ := Analyze(nil, detectors); detected {
		t.Errorf("nil response must not be flagged")
	}
}
