package validation

const createOrderSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["items", "shippingAddress", "billingAddress"],
  "properties": {
    "items": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["productSku", "quantity"],
        "properties": {
          "productSku": { "type": "string", "pattern": "^PROD-[0-9]+$" },
          "quantity": { "type": "integer", "minimum": 1 },
          "selectedSize": { "type": "string", "minLength": 1 },
          "selectedColor": { "type": "string", "minLength": 1 }
        },
        "additionalProperties": false
      }
    },
    "shippingAddress": { "$ref": "#/definitions/address" },
    "billingAddress": { "$ref": "#/definitions/address" },
    "paymentMethod": {
      "type": "string",
      "enum": ["stripe", "credit_card", "debit_card", "upi", "wallet"]
    },
    "couponCode": { "type": "string", "maxLength": 64 },
    "stripeSessionId": { "type": "string", "maxLength": 255 }
  },
  "additionalProperties": false,
  "definitions": {
    "address": {
      "type": "object",
      "required": ["firstName", "lastName", "address", "city", "state", "zip", "country"],
      "properties": {
        "firstName": { "type": "string", "minLength": 1 },
        "lastName": { "type": "string", "minLength": 1 },
        "address": { "type": "string", "minLength": 1 },
        "city": { "type": "string", "minLength": 1 },
        "state": { "type": "string", "minLength": 1 },
        "zip": { "type": "string", "minLength": 1 },
        "country": { "type": "string", "minLength": 1 },
        "phone": { "type": "string" }
      },
      "additionalProperties": false
    }
  }
}`

const cancelOrderSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "reason": { "type": "string", "maxLength": 500 }
  },
  "additionalProperties": false
}`
