// session — координатор сессии клиента.
//
// Координатор владеет парой токенов (access/refresh) и состоянием
// аутентификации, прикладывает access-токен к исходящим запросам и на 401
// выполняет ровно одно обновление токена на событие истечения:
//   - нет refresh-токена — сессия сбрасывается (logout), вызывающему
//     возвращается исходный 401;
//   - обновление уже идёт — запрос встаёт в FIFO-очередь и ждёт его итога;
//   - иначе запрос сам становится инициатором обновления: при успехе новый
//     access сохраняется и раздаётся очереди по порядку, при ошибке очередь
//     получает ту же ошибку, а сессия сбрасывается.
//
// Каждый запрос повторяется из-за 401 не более одного раза; повторный 401
// возвращается вызывающему как есть.
//
// Все изменения состояния идут через методы Coordinator; координатор
// безопасен для конкурентного использования из разных горутин.
package session
