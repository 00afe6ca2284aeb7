// Package docs 注册 AutoSubRT 的 OpenAPI 文档，供 /openapi.json 读取
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/asr/srt": {
            "post": {
                "description": "下载音频并生成 SRT 字幕，返回字幕下载地址",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["ASR"],
                "summary": "音频转字幕",
                "parameters": [
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/asrapi.SrtRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.Envelope"}}}
            }
        },
        "/asr/text": {
            "post": {
                "description": "下载音频并返回识别文本",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["ASR"],
                "summary": "音频转文本",
                "parameters": [
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/asrapi.TextRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.Envelope"}}}
            }
        },
        "/asr/embed": {
            "post": {
                "description": "视频嵌入字幕，当前返回空地址",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["ASR"],
                "summary": "嵌入字幕",
                "parameters": [
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/asrapi.EmbedRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.Envelope"}}}
            }
        },
        "/asr/jobs/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["ASR"],
                "summary": "查询任务记录",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.Envelope"}}}
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["System"],
                "summary": "服务健康状态",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.Envelope"}}}
            }
        }
    },
    "definitions": {
        "asrapi.SrtRequest": {
            "type": "object",
            "required": ["audio_url"],
            "properties": {"audio_url": {"type": "string", "format": "uri"}}
        },
        "asrapi.TextRequest": {
            "type": "object",
            "properties": {"audio_url": {"type": "string", "default": ""}}
        },
        "asrapi.EmbedRequest": {
            "type": "object",
            "properties": {"video_url": {"type": "string", "default": ""}}
        },
        "httptransport.Envelope": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "message": {"type": "string"},
                "data": {"type": "object"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "",
	BasePath:         "/openapi/v1",
	Schemes:          []string{},
	Title:            "AutoSubRT API",
	Description:      "语音识别生成 SRT 字幕服务",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
