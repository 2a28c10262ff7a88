package logger

const LoggerPropertiesMissingMsg = "找不到 logger.properties，只輸出到 stdout"
const LoggerLevelReloadedMsg = "logger.properties 已變更，重新套用 log level"

const ServerStartMsg = "伺服器啟動"
const ServerStopMsg = "伺服器關閉"
const ServerListenFailedMsg = "伺服器監聽失敗"
const ConfigPropertiesMissingMsg = "找不到設定檔，使用預設值"
const HandshakeRateLimitedMsg = "連線請求太頻繁，拒絕升級"
const UpgradeFailedMsg = "websocket 升級失敗"
const GameKeyCreatedMsg = "建立新的遊戲房間代碼"

const ConnEnterRoomMsg = "連線進入房間"
const ConnLeaveRoomMsg = "連線離開房間"
const ConnBrokenMsg = "連線已斷開！"
const ConnEvictedMsg = "傳送失敗，將連線踢出房間"
const ConnRouterFaultMsg = "處理連線訊息時發生錯誤"
const MessageDroppedMsg = "訊息無法解析，忽略"
const MessageRateLimitedMsg = "訊息太頻繁，忽略"
const MarshalPayloadFailedMsg = "訊息編碼失敗"

const RoomCreatedMsg = "建立房間"
const RoomTornDownMsg = "房間已經沒有人，關閉房間"
const RoomTransitionRejectedMsg = "房間狀態轉換不合法，忽略"

const PlayerIdentifiedMsg = "玩家取得座位"
const PlayerIdentifyRejectedMsg = "房間已滿，連線只能觀戰"
const PlayerLeftSlotMsg = "玩家離開座位"
const PlayerPressReadyMsg = "玩家按下準備開始"
const PlayerCancelReadyMsg = "玩家按下取消準備"

const BattleStartMsg = "對戰開始"
const WaitingForPlayersMsg = "還有玩家沒準備好，無法開始"
const PlayerScoredMsg = "玩家得分"
const BattleOverMsg = "對戰結束"
const BattleAbortedMsg = "玩家離線，對戰中止"
const SimulationFaultMsg = "模擬迴圈發生錯誤，停止該房間的對戰"
