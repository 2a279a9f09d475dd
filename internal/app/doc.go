// Package app связывает клиент комнаты, метрики и ретранслятор в одну
// программу: конфиг, печать чата в консоль, консольные команды.
package app
